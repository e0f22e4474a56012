// Package tasks turns Plex, MusicBrainz and yt-dlp calls into the card-game workflows.
//
// # Operations
//
// [Engine] implements:
//
//  1. [Engine.MapCards] : card deck CSV -> mapping
//     - Searches each card with the matching heuristics (exact year only)
//     - Reuses cached matches through [MatchCache] and records runs through [RunRecorder]
//     - Returns the mapping plus the cards that were not found
//
//  2. [Engine.Check], [Engine.Enrich], [Engine.Missing] : mapping maintenance
//     - Check verifies rating keys still exist, optionally nulling the dead ones
//     - Enrich re-fetches metadata and applies the date remapper
//     - Missing compares a mapping with a Plex playlist
//
//  3. [Engine.Validate] : release years against MusicBrainz
//
//  4. [Engine.CreateGame] : custom games from a list of rating keys
//
//  5. [Engine.Scan] : targeted library scans
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate] values.
// Sends never block: when the channel is full the update is dropped.
//
// # Caching
//
// The cache is advisory. Lookup and save failures are logged and the card is searched as if uncached.
package tasks
