// Package repositories implements SQLite persistence for the mapper's match cache.
//
// Key Implementations:
//   - [MatchRepository] : cached Plex search results keyed by (source, card id)
//   - [RunRepository] : one row per mapper run with its match statistics
//
// IDs are v4 UUIDs from [shared.GenerateID]. Tracks are stored as JSON so the
// cache always round-trips the exact mapping entry.
package repositories
