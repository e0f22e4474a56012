// Package models defines the file shapes exchanged with the SongSeeker front end and the Plex server.
//
// The package contains three groups of types:
//
// 1. Mapping files: [Track] entries keyed by card ID in a [Mapping], listed in a [Manifest]
//   - [Mapping] writes its keys in natural order so diffs between runs stay small
//
// 2. Year corrections: [RemapperEntry] overrides applied to fetched tracks and the
// [Discrepancy] records produced by MusicBrainz validation
//
// 3. Server views: [Section], [Playlist] and [ServerInfo] read from the Plex API
//
// JSON field names match the files the front end loads and must not change.
package models
