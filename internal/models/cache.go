package models

import (
	"fmt"
	"time"
)

// CardMatch is a cached search result for one card of one CSV source.
type CardMatch struct {
	ID        string
	Source    string
	CardID    string
	Artist    string
	Title     string
	Year      string
	Track     *Track
	MatchedAt time.Time
}

// Found reports whether the cached search found a track.
func (c *CardMatch) Found() bool {
	return c.Track != nil
}

// Fresh reports whether the cache entry was made for the same card data.
func (c *CardMatch) Fresh(card Card) bool {
	return c.Artist == card.Artist && c.Title == card.Title && c.Year == card.Year
}

// Validate checks required fields.
func (c *CardMatch) Validate() error {
	if c.Source == "" || c.CardID == "" {
		return fmt.Errorf("card match requires source and card id")
	}
	return nil
}

// MappingRun records one mapper invocation.
type MappingRun struct {
	ID         string
	Source     string
	Output     string
	Total      int
	Found      int
	Cached     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// MatchRate is the percentage of cards found.
func (r *MappingRun) MatchRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Found) / float64(r.Total) * 100
}
