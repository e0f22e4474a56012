// package matching holds the string heuristics used to pair printed cards with Plex tracks
// and Plex tracks with MusicBrainz recordings.
package matching

import (
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/songseeker/internal/models"
	"github.com/desertthunder/songseeker/internal/shared"
)

var (
	featPattern      = regexp.MustCompile(`(?i)feat\..*`)
	commaPattern     = regexp.MustCompile(`,.*`)
	parenPattern     = regexp.MustCompile(`\(.*\)`)
	bracketPattern   = regexp.MustCompile(`\[.*\]`)
	shortLinkPattern = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]+)`)
	nonAlnumPattern  = regexp.MustCompile(`[^a-z0-9]`)
)

// CleanArtist drops featured artists and everything after the first comma.
func CleanArtist(artist string) string {
	artist = featPattern.ReplaceAllString(artist, "")
	return strings.TrimSpace(commaPattern.ReplaceAllString(artist, ""))
}

// CleanTitle drops parenthesised and bracketed segments ("Song (Remastered 2009)" -> "Song").
func CleanTitle(title string) string {
	title = parenPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(bracketPattern.ReplaceAllString(title, ""))
}

// SearchQueries returns the Plex queries tried for a card, most reliable first:
// title alone, artist and title, then artist alone.
func SearchQueries(artist, title string) []string {
	artist, title = CleanArtist(artist), CleanTitle(title)

	var queries []string
	for _, q := range []string{title, strings.TrimSpace(artist + " " + title), artist} {
		if q != "" && !slices.Contains(queries, q) {
			queries = append(queries, q)
		}
	}
	return queries
}

// IsCandidate reports whether a Plex track plausibly is the card's song.
// Title and artist must each contain the other, in either direction, ignoring case.
func IsCandidate(cleanArtist, cleanTitle, trackArtist, trackTitle string) bool {
	return containsEither(strings.ToLower(cleanTitle), strings.ToLower(trackTitle)) &&
		containsEither(strings.ToLower(cleanArtist), strings.ToLower(trackArtist))
}

func containsEither(a, b string) bool {
	return strings.Contains(b, a) || strings.Contains(a, b)
}

// YearDiff is the absolute distance between two years.
func YearDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// Matcher accumulates the best candidate across several search result pages.
type Matcher struct {
	artist string
	title  string
	year   int
	best   *models.Track
	diff   int
}

// NewMatcher prepares a matcher for one card.
func NewMatcher(artist, title string, year int) *Matcher {
	return &Matcher{artist: CleanArtist(artist), title: CleanTitle(title), year: year, diff: -1}
}

// Consider offers a track and reports whether it is an exact year match.
func (m *Matcher) Consider(t models.Track) bool {
	if !IsCandidate(m.artist, m.title, t.Artist, t.Title) {
		return false
	}

	diff := YearDiff(t.Year, m.year)
	if m.best == nil || diff < m.diff {
		track := t
		m.best, m.diff = &track, diff
	}
	return diff == 0
}

// Result returns the best track when its year matches exactly, else nil.
func (m *Matcher) Result() *models.Track {
	if m.best != nil && m.diff == 0 {
		return m.best
	}
	return nil
}

// Closest returns the best candidate regardless of year and its year difference.
func (m *Matcher) Closest() (*models.Track, int) {
	return m.best, m.diff
}

// BestMatch runs every query through search and returns the exact-year match, if any.
// A search error skips that query.
func BestMatch(artist, title string, year int, search func(query string) ([]models.Track, error)) *models.Track {
	m := NewMatcher(artist, title, year)
	for _, q := range SearchQueries(artist, title) {
		tracks, err := search(q)
		if err != nil {
			continue
		}
		for _, t := range tracks {
			if m.Consider(t) {
				return m.Result()
			}
		}
	}
	return m.Result()
}

// Normalize lower-cases text, spells out "&", folds accents and keeps only [a-z0-9].
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(strings.ToLower(text), "&", "and")
	text = strings.ToLower(shared.FoldAccents(text))
	return nonAlnumPattern.ReplaceAllString(text, "")
}

// TitleOverlap compares normalized titles. Containment only counts when the shorter
// title is at least half as long as the longer one, so "Satisfaction" matches
// "(I Can't Get No) Satisfaction" but "Reborn" does not match "Queen of Hearts Reborn".
func TitleOverlap(plexTitle, mbTitle string) bool {
	a, b := Normalize(plexTitle), Normalize(mbTitle)
	if a == b {
		return true
	}
	if !containsEither(a, b) {
		return false
	}

	shorter, longer := len(a), len(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	return float64(shorter)/float64(longer) >= 0.5
}

// ArtistOverlap reports whether either normalized artist contains the other, so
// "Queen" matches "Queen & David Bowie". Single shared words such as "The" do not count.
func ArtistOverlap(plexArtist, mbArtist string) bool {
	return containsEither(Normalize(plexArtist), Normalize(mbArtist))
}

var luceneEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `&`, `\&`, `|`, `\|`, `!`, `\!`,
	`(`, `\(`, `)`, `\)`, `{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`,
	`^`, `\^`, `"`, `\"`, `~`, `\~`, `*`, `\*`, `?`, `\?`, `:`, `\:`, `/`, `\/`,
)

// EscapeLucene backslash-escapes the Lucene query syntax characters.
func EscapeLucene(text string) string {
	return luceneEscaper.Replace(text)
}

// YouTubeMusicURL rewrites a YouTube link to its music.youtube.com form.
func YouTubeMusicURL(url string) string {
	if url == "" {
		return ""
	}
	if m := shortLinkPattern.FindStringSubmatch(url); m != nil {
		return "https://music.youtube.com/watch?v=" + m[1]
	}
	url = strings.Replace(url, "https://www.youtube.com/", "https://music.youtube.com/", 1)
	return strings.Replace(url, "https://youtube.com/", "https://music.youtube.com/", 1)
}

var unsafeFilename = strings.NewReplacer("<", "", ">", "", ":", "", `"`, "", "/", "", `\`, "", "|", "", "?", "", "*", "")

// SafeFilename strips characters that are invalid in file names on common platforms.
func SafeFilename(name string) string {
	return strings.TrimSpace(unsafeFilename.Replace(name))
}
