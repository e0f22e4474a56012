package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/songseeker/internal/shared"
	tu "github.com/desertthunder/songseeker/internal/testing"
)

const plexTrackJSON = `{"MediaContainer":{"size":1,"Metadata":[{
	"ratingKey":"4242","title":"Waterloo","grandparentTitle":"ABBA","parentTitle":"Waterloo",
	"parentYear":1974,"year":2001,"duration":168000,"guid":"plex://track/abc",
	"Guid":[{"id":"local://1"},{"id":"mbid://e8f9b188"}],
	"Media":[{"Part":[{"key":"/library/parts/99/file.mp3"}]}]}]}}`

func newPlexServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("X-Plex-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Accept") != "application/json" {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}

		switch {
		case r.URL.Path == "/":
			w.Write([]byte(`{"MediaContainer":{"friendlyName":"Basement","version":"1.40.0"}}`))
		case r.URL.Path == "/search":
			if r.URL.Query().Get("type") != "10" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if r.URL.Query().Get("query") == "nothing" {
				w.Write([]byte(`{"MediaContainer":{"size":0}}`))
				return
			}
			w.Write([]byte(`{"MediaContainer":{"size":2,"Metadata":[
				{"ratingKey":"1","title":"Waterloo","grandparentTitle":"ABBA","parentYear":1974},
				{"ratingKey":"2","title":"Waterloo Sunset","originalTitle":"The Kinks","year":1967}]}}`))
		case r.URL.Path == "/library/metadata/4242":
			if r.URL.Query().Get("includeGuids") != "1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte(plexTrackJSON))
		case r.URL.Path == "/library/metadata/empty":
			w.Write([]byte(`{"MediaContainer":{"size":0}}`))
		case r.URL.Path == "/library/sections":
			w.Write([]byte(`{"MediaContainer":{"Directory":[
				{"key":"3","title":"Music","type":"artist","Location":[{"path":"/data/music"}]},
				{"key":"1","title":"Movies","type":"movie","Location":[]}]}}`))
		case r.URL.Path == "/library/sections/3/refresh":
			if r.URL.Query().Get("path") != "/data/music/ABBA" || r.URL.Query().Get("force") != "1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/playlists":
			w.Write([]byte(`{"MediaContainer":{"Metadata":[
				{"ratingKey":"77","title":"SongSeeker","leafCount":2},
				{"ratingKey":"78","title":"Party","leafCount":10}]}}`))
		case r.URL.Path == "/playlists/77/items":
			w.Write([]byte(`{"MediaContainer":{"Metadata":[{"ratingKey":"1"},{"ratingKey":"4242"}]}}`))
		case r.URL.Path == "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPlexService(t *testing.T) {
	srv := newPlexServer(t)
	defer srv.Close()

	ctx := context.Background()
	plex := NewPlexService(srv.URL+"/", "secret", PlexOptions{})

	t.Run("ServerInfo", func(t *testing.T) {
		info, err := plex.ServerInfo(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.FriendlyName != "Basement" || info.Version != "1.40.0" {
			t.Errorf("unexpected info %+v", info)
		}
	})

	t.Run("Search", func(t *testing.T) {
		tracks, err := plex.Search(ctx, "Waterloo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[1].Artist != "The Kinks" || tracks[1].Year != 1967 {
			t.Errorf("expected originalTitle and year fallbacks, got %+v", tracks[1])
		}

		empty, err := plex.Search(ctx, "nothing")
		if err != nil || len(empty) != 0 {
			t.Errorf("expected empty result, got %v %v", empty, err)
		}
	})

	t.Run("Track", func(t *testing.T) {
		track, err := plex.Track(ctx, "4242")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track.Year != 1974 {
			t.Errorf("expected parentYear to win, got %d", track.Year)
		}
		if track.PartKey != "/library/parts/99/file.mp3" {
			t.Errorf("unexpected part key %s", track.PartKey)
		}
		if track.MBID != "e8f9b188" || track.GUID != "plex://track/abc" {
			t.Errorf("unexpected ids %s %s", track.MBID, track.GUID)
		}
	})

	t.Run("Track not found", func(t *testing.T) {
		for _, key := range []string{"empty", "missing"} {
			if _, err := plex.Track(ctx, key); !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("%s: expected ErrTrackNotFound, got %v", key, err)
			}
		}
	})

	t.Run("Sections", func(t *testing.T) {
		sections, err := plex.Sections(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(sections) != 2 || sections[0].Root != "/data/music" || sections[1].Root != "" {
			t.Errorf("unexpected sections %+v", sections)
		}
		if sections[0].String() != "[3] Music (artist)" {
			t.Errorf("unexpected label %s", sections[0])
		}
	})

	t.Run("Scan", func(t *testing.T) {
		if err := plex.Scan(ctx, "3", "/data/music/ABBA", true); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := plex.Scan(ctx, "9", "", false); !errors.Is(err, shared.ErrSectionNotFound) {
			t.Errorf("expected ErrSectionNotFound, got %v", err)
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		pl, err := FindPlaylist(ctx, plex, "songseeker")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pl.RatingKey != "77" {
			t.Errorf("expected playlist 77, got %s", pl.RatingKey)
		}

		byKey, err := FindPlaylist(ctx, plex, "78")
		if err != nil || byKey.Title != "Party" {
			t.Errorf("expected lookup by key, got %+v %v", byKey, err)
		}

		if _, err := FindPlaylist(ctx, plex, "Nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}

		keys, err := plex.PlaylistItems(ctx, "77")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(keys, []string{"1", "4242"}) {
			t.Errorf("unexpected keys %v", keys)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		bad := NewPlexService(srv.URL, "wrong", PlexOptions{})
		if _, err := bad.ServerInfo(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		err := plex.doRequest(ctx, "/broken", nil, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("transport errors hide the token", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		down := NewPlexService("http://plex.invalid", "secret", PlexOptions{HTTPClient: client})

		_, err := down.ServerInfo(ctx)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if strings.Contains(err.Error(), "secret") {
			t.Errorf("token leaked into error: %v", err)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		broken := NewPlexService("http://plex.invalid", "secret", PlexOptions{HTTPClient: client})

		if _, err := broken.ServerInfo(ctx); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
