// Package services talks to the systems outside the repo: the Plex Media Server, MusicBrainz and yt-dlp.
//
// # Library Interface
//
// [Library] is everything the mapping tools need from Plex: server info, search, lookups by rating key,
// library sections and scans, and playlists. [PlexService] implements it over the Plex HTTP API with
// JSON responses and a static X-Plex-Token. Requests share one [rate.Limiter].
//
// # MusicBrainz
//
// [MusicBrainzService] implements [RecordingSearcher]. Requests are spaced at least one interval apart
// (1.5s by default) and identify themselves with a User-Agent as the MusicBrainz API requires.
// Each lookup merges an official-release query, a general artist + recording query and,
// when every year found is recent, a query for older releases. Failed queries are retried
// with [backoff.Retry] (2s, then 4s) and give up with an empty result.
//
// # Downloads
//
// [YouTubeDownloader] implements [Downloader] by running the yt-dlp binary. Songs land in
// <dir>/<artist>/<title>/<title> (<year>).mp3; an existing file is reported as skipped.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrTrackNotFound] : rating key unknown to Plex
//   - [shared.ErrPlaylistNotFound] : no playlist with that name or key
//   - [shared.ErrDownloadFailed] : yt-dlp exited with an error
package services
