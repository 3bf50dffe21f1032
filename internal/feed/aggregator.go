package feed

import (
	"context"
	"time"

	"github.com/bilgisen/newsbridge/internal/logger"
	"github.com/bilgisen/newsbridge/internal/models"
)

// Aggregator runs every source concurrently and concatenates the results.
type Aggregator struct {
	sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// Collect waits for all sources. Items keep their per-source order and
// sources are concatenated in registration order.
func (a *Aggregator) Collect(ctx context.Context) []models.ScrapedItem {
	log := logger.Component("aggregator")
	start := time.Now()

	type result struct {
		index int
		items []models.ScrapedItem
	}
	results := make(chan result, len(a.sources))

	for i, src := range a.sources {
		go func(i int, src Source) {
			var items []models.ScrapedItem
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("source", src.Name()).Interface("panic", r).Msg("Source panicked")
					items = nil
				}
				results <- result{index: i, items: items}
			}()
			items = src.FetchItems(ctx)
		}(i, src)
	}

	perSource := make([][]models.ScrapedItem, len(a.sources))
	for range a.sources {
		res := <-results
		perSource[res.index] = res.items
	}

	var all []models.ScrapedItem
	for i, items := range perSource {
		log.Info().
			Str("source", a.sources[i].Name()).
			Int("items", len(items)).
			Msg("Source collected")
		all = append(all, items...)
	}

	log.Info().
		Int("sources", len(a.sources)).
		Int("total_items", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Aggregation finished")
	return all
}
