package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bilgisen/newsbridge/internal/models"
	"gopkg.in/yaml.v3"
)

// Source fetches and normalizes items from one upstream. Implementations never
// fail: errors are logged and produce an empty slice.
type Source interface {
	Name() string
	FetchItems(ctx context.Context) []models.ScrapedItem
}

const (
	TypeFeed   = "feed"
	TypeSearch = "search"

	defaultMaxItems = 20
)

// SourceConfig describes one adapter in the sources file.
type SourceConfig struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	URL      string   `yaml:"url"`
	Keywords []string `yaml:"keywords,omitempty"`
	Queries  []string `yaml:"queries,omitempty"`
	MaxItems int      `yaml:"max_items,omitempty"`
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// AIKeywords is the allow-list for upstreams without a topic filter.
var AIKeywords = []string{
	" ai ", "ai-", "artificial intelligence", "machine learning", "llm", "gpt",
	"openai", "anthropic", "claude", "gemini", "deepseek", "llama", "mistral",
	"neural", "chatbot", "agent", "transformer", "diffusion", "copilot",
}

// DefaultSources is used when no sources file is configured.
var DefaultSources = []SourceConfig{
	{Name: "OpenAI News", Type: TypeFeed, URL: "https://openai.com/news/rss.xml"},
	{Name: "TechCrunch AI", Type: TypeFeed, URL: "https://techcrunch.com/category/artificial-intelligence/feed/"},
	{Name: "The Verge AI", Type: TypeFeed, URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml"},
	{Name: "36Kr", Type: TypeFeed, URL: "https://36kr.com/feed", Keywords: append([]string{"人工智能", "大模型", "智能体"}, AIKeywords...)},
	{Name: "Hacker News", Type: TypeFeed, URL: "https://hnrss.org/frontpage", Keywords: AIKeywords},
	{
		Name:    "HN Search",
		Type:    TypeSearch,
		URL:     "https://hn.algolia.com/api/v1/search_by_date",
		Queries: []string{"LLM", "OpenAI", "Anthropic", "AI agent"},
	},
}

// LoadSources reads a YAML sources file. An empty path yields DefaultSources.
func LoadSources(path string) ([]SourceConfig, error) {
	if path == "" {
		return DefaultSources, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", path)
	}
	return f.Sources, nil
}

// BuildSources turns configs into adapters sharing one fetcher.
func BuildSources(cfgs []SourceConfig, fetcher *Fetcher) ([]Source, error) {
	out := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.Name == "" || c.URL == "" {
			return nil, fmt.Errorf("source %q: name and url are required", c.Name)
		}
		if c.MaxItems <= 0 {
			c.MaxItems = defaultMaxItems
		}
		switch c.Type {
		case TypeFeed, "":
			out = append(out, NewFeedSource(c, fetcher))
		case TypeSearch:
			if len(c.Queries) == 0 {
				return nil, fmt.Errorf("source %q: search sources need queries", c.Name)
			}
			out = append(out, NewSearchSource(c, fetcher))
		default:
			return nil, fmt.Errorf("source %q: unknown type %q", c.Name, c.Type)
		}
	}
	return out, nil
}

var nowFunc = time.Now
