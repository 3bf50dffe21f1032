// Package article retrieves the readable body of a news page ahead of
// summarization. Failures never surface: callers receive an empty string and
// fall back to the headline.
package article

import (
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/utils"
	"github.com/go-resty/resty/v2"
)

// Fetcher is the article-fetch collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}

// noise is removed before any text is read.
const noise = "script, style, noscript, iframe, svg, form, nav, header, footer, aside, " +
	"[role=navigation], [role=banner], [role=complementary], " +
	".ad, .ads, .advert, .advertisement, .sidebar, .related, .share, .social, .comments, .newsletter"

// contentSelectors are tried in order; the first non-empty match wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".post-content",
	".article-body",
	".article-content",
	".entry-content",
	".story-body",
	"#content",
}

// HTTPFetcher fetches pages with a hard timeout and extracts text with goquery.
type HTTPFetcher struct {
	client   *resty.Client
	timeout  time.Duration
	maxChars int
}

func NewHTTPFetcher(timeout time.Duration, maxChars int) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; newsbridge/1.0)").
			SetHeader("Accept", "text/html,application/xhtml+xml"),
		timeout:  timeout,
		maxChars: maxChars,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) string {
	log := logger.Component("article")

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Article fetch failed")
		return ""
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode()).Str("url", url).Msg("Article fetch returned non-200")
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Article parse failed")
		return ""
	}

	text := ExtractText(doc)
	log.Debug().Str("url", url).Int("chars", len([]rune(text))).Msg("Article fetched")
	return utils.Truncate(text, f.maxChars)
}

// ExtractText strips non-content elements and returns the collapsed text of
// the first matching content container, or of the whole body.
func ExtractText(doc *goquery.Document) string {
	doc.Find(noise).Remove()

	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := utils.CollapseSpace(node.Text()); text != "" {
			return text
		}
	}
	return utils.CollapseSpace(doc.Find("body").Text())
}
