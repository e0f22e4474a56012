package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/songseeker/internal/matching"
	"github.com/desertthunder/songseeker/internal/models"
)

// MapOpts configures [Engine.MapCards].
type MapOpts struct {
	Source     string // Cache key for the deck, usually the CSV file name
	Output     string // Mapping file path, recorded with the run
	Limit      int    // Process only the first Limit cards when > 0
	Refresh    bool   // Ignore cached matches
	NumWorkers int    // Concurrent searches (default: 4)
}

// CardResult is the outcome of matching one card.
type CardResult struct {
	Card   models.Card
	Track  *models.Track
	Cached bool
}

// MapResult contains the mapping built from a card deck.
type MapResult struct {
	Mapping  models.Mapping
	Missing  []models.Card
	Results  []CardResult
	Total    int
	Found    int
	NotFound int
	Cached   int
	Run      *models.MappingRun
}

// MatchRate is the percentage of cards found.
func (r *MapResult) MatchRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Found) / float64(r.Total) * 100
}

// DeckLanguage derives the deck name from a CSV path: "hitster-de.csv" becomes "de".
func DeckLanguage(csvPath string) string {
	stem := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	return strings.ReplaceAll(stem, "hitster-", "")
}

// MappingName returns the default output file name for a deck.
func MappingName(csvPath string, now time.Time) string {
	return fmt.Sprintf("plex-mapping-%s_%s.json", DeckLanguage(csvPath), now.Format("2006-01-02T15-04-05"))
}

// MapCards searches the library for every card and builds a mapping.
//
// Searches run on a small worker pool; results keep the card order.
// With a cache, a found match for unchanged card data is reused unless opts.Refresh is set.
// Cached misses are always searched again.
func (e *Engine) MapCards(ctx context.Context, prog chan<- ProgressUpdate, cards []models.Card, opts MapOpts) (*MapResult, error) {
	if err := e.requireLibrary(); err != nil {
		return nil, err
	}

	if opts.Limit > 0 && opts.Limit < len(cards) {
		cards = cards[:opts.Limit]
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}

	total := len(cards)
	result := &MapResult{
		Mapping: make(models.Mapping, total),
		Results: make([]CardResult, total),
		Total:   total,
	}

	run := e.startRun(ctx, opts, total)

	type job struct {
		index int
		card  models.Card
	}
	type done struct {
		index int
		res   CardResult
	}

	jobs := make(chan job, total)
	results := make(chan done, total)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- done{index: j.index, res: e.matchCard(ctx, opts, j.card)}
			}
		}()
	}

	for i, card := range cards {
		jobs <- job{index: i, card: card}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for d := range results {
		completed++
		result.Results[d.index] = d.res
		e.sendProgress(prog, searchCardUpdate(completed, total, d.res))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, res := range result.Results {
		result.Mapping[res.Card.ID] = res.Track
		if res.Track == nil {
			result.NotFound++
			result.Missing = append(result.Missing, res.Card)
			continue
		}
		result.Found++
		if res.Cached {
			result.Cached++
		}
	}

	result.Run = e.finishRun(ctx, run, result)
	return result, nil
}

func (e *Engine) matchCard(ctx context.Context, opts MapOpts, card models.Card) CardResult {
	res := CardResult{Card: card}
	useCache := e.cache != nil && opts.Source != ""

	if useCache && !opts.Refresh {
		cached, err := e.cache.Lookup(ctx, opts.Source, card.ID)
		if err != nil {
			e.logger.Warn("cache lookup failed", "card", card.ID, "error", err)
		} else if cached != nil && cached.Found() && cached.Fresh(card) {
			res.Track = cached.Track
			res.Cached = true
			return res
		}
	}

	res.Track = matching.BestMatch(card.Artist, card.Title, card.YearInt(), func(query string) ([]models.Track, error) {
		tracks, err := e.plex.Search(ctx, query)
		if err != nil {
			e.logger.Debug("search failed", "query", query, "error", err)
		}
		return tracks, err
	})

	if useCache && ctx.Err() == nil {
		match := &models.CardMatch{
			Source: opts.Source,
			CardID: card.ID,
			Artist: card.Artist,
			Title:  card.Title,
			Year:   card.Year,
			Track:  res.Track,
		}
		if err := e.cache.Save(ctx, match); err != nil {
			e.logger.Warn("cache save failed", "card", card.ID, "error", err)
		}
	}
	return res
}

func (e *Engine) startRun(ctx context.Context, opts MapOpts, total int) *models.MappingRun {
	if e.runs == nil || opts.Source == "" {
		return nil
	}
	run := &models.MappingRun{Source: opts.Source, Output: opts.Output, Total: total, StartedAt: e.now().UTC()}
	if err := e.runs.Create(ctx, run); err != nil {
		e.logger.Warn("failed to record mapping run", "error", err)
		return nil
	}
	return run
}

func (e *Engine) finishRun(ctx context.Context, run *models.MappingRun, result *MapResult) *models.MappingRun {
	if run == nil {
		return nil
	}
	run.Total = result.Total
	run.Found = result.Found
	run.Cached = result.Cached
	if err := e.runs.Finish(ctx, run); err != nil {
		e.logger.Warn("failed to finish mapping run", "id", run.ID, "error", err)
	}
	return run
}
