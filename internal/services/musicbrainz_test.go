package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// scheduleRecorder records the production retry schedule but retries immediately.
type scheduleRecorder struct {
	next   backoff.BackOff
	delays []time.Duration
}

func (s *scheduleRecorder) NextBackOff() time.Duration {
	s.delays = append(s.delays, s.next.NextBackOff())
	return 0
}

func (s *scheduleRecorder) Reset() { s.next.Reset() }

func newTestMusicBrainz(url string) *MusicBrainzService {
	mb := NewMusicBrainzService(MusicBrainzOptions{BaseURL: url, RequestInterval: time.Millisecond})
	mb.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return mb
}

func TestMusicBrainzService(t *testing.T) {
	ctx := context.Background()

	t.Run("SearchRecordings combines and dedupes", func(t *testing.T) {
		var queries []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") == "" || r.URL.Query().Get("fmt") != "json" || r.URL.Query().Get("limit") != "100" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			q := r.URL.Query().Get("query")
			queries = append(queries, q)

			w.Header().Set("Content-Type", "application/json")
			switch {
			case strings.Contains(q, "firstreleasedate"):
				w.Write([]byte(`{"recordings":[{"id":"old","title":"Waterloo","score":80,"first-release-date":"1973-11",
					"artist-credit":[{"name":"ABBA","joinphrase":""}]}]}`))
			case strings.Contains(q, "status:official"):
				w.Write([]byte(`{"recordings":[{"id":"a","title":"Waterloo","score":100,"first-release-date":"1974-03-04",
					"artist-credit":[{"name":"ABBA","joinphrase":" & "},{"name":"Friends","joinphrase":""}]}]}`))
			default:
				w.Write([]byte(`{"recordings":[{"id":"a","title":"Waterloo","score":100,"first-release-date":"1974-03-04"},
					{"id":"b","title":"Waterloo","score":90,"first-release-date":""}]}`))
			}
		}))
		defer srv.Close()

		recs, err := newTestMusicBrainz(srv.URL).SearchRecordings(ctx, "ABBA", "Waterloo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(queries) != 3 {
			t.Fatalf("expected 3 queries, got %d: %v", len(queries), queries)
		}
		if !strings.Contains(queries[2], "firstreleasedate:[1900 TO 1973]") {
			t.Errorf("unexpected older query %s", queries[2])
		}
		if len(recs) != 3 {
			t.Fatalf("expected 3 unique recordings, got %d", len(recs))
		}
		if recs[0].Artist != "ABBA & Friends" || recs[0].FirstReleaseYear != 1974 {
			t.Errorf("unexpected first recording %+v", recs[0])
		}
		if recs[1].FirstReleaseYear != 0 {
			t.Errorf("expected missing year, got %d", recs[1].FirstReleaseYear)
		}
		if EarliestYear(recs) != 1973 {
			t.Errorf("expected earliest 1973, got %d", EarliestYear(recs))
		}
	})

	t.Run("no older search for early recordings", func(t *testing.T) {
		var count atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count.Add(1)
			w.Write([]byte(`{"recordings":[{"id":"x","title":"Old","score":100,"first-release-date":"1940"}]}`))
		}))
		defer srv.Close()

		if _, err := newTestMusicBrainz(srv.URL).SearchRecordings(ctx, "A", "Old"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count.Load() != 2 {
			t.Errorf("expected 2 queries, got %d", count.Load())
		}
	})

	t.Run("retries 503", func(t *testing.T) {
		var count atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if count.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"recordings":[]}`))
		}))
		defer srv.Close()

		mb := newTestMusicBrainz(srv.URL)
		rec := &scheduleRecorder{next: retryBackOff()}
		mb.newBackOff = func() backoff.BackOff { return rec }

		recs, err := mb.search(ctx, "q")
		if err != nil || len(recs) != 0 {
			t.Fatalf("unexpected result %v %v", recs, err)
		}
		if len(rec.delays) != 1 || rec.delays[0] != 2*time.Second {
			t.Errorf("unexpected backoff %v", rec.delays)
		}
	})

	t.Run("exhausted retries return empty", func(t *testing.T) {
		var count atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		mb := newTestMusicBrainz(srv.URL)
		rec := &scheduleRecorder{next: retryBackOff()}
		mb.newBackOff = func() backoff.BackOff { return rec }

		recs, err := mb.search(ctx, "q")
		if err != nil || recs != nil {
			t.Fatalf("expected empty result without error, got %v %v", recs, err)
		}
		if count.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", count.Load())
		}
		if len(rec.delays) != 2 || rec.delays[0] != 2*time.Second || rec.delays[1] != 4*time.Second {
			t.Errorf("unexpected backoff %v", rec.delays)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := newTestMusicBrainz(srv.URL).search(cctx, "q"); err == nil {
			t.Error("expected context error")
		}
	})
}
