package subsonic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/clickwheel/clickwheel/internal/catalog"
)

func okResponse(payload map[string]any) map[string]any {
	body := map[string]any{"status": "ok", "version": apiVersion}
	for k, v := range payload {
		body[k] = v
	}
	return map[string]any{"subsonic-response": body}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c := NewWithConfig(Config{
		BaseURL:  server.URL,
		Username: "user",
		Password: "pw",
	})
	return c, server
}

func TestResolveAlbum(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/getAlbum" {
			w.WriteHeader(404)
			return
		}
		if r.URL.Query().Get("id") != "al-1" {
			t.Errorf("unexpected album id %q", r.URL.Query().Get("id"))
		}
		json.NewEncoder(w).Encode(okResponse(map[string]any{
			"album": map[string]any{
				"id":   "al-1",
				"name": "Abbey Road",
				"song": []map[string]any{
					{"id": "s1", "title": "Come Together", "artist": "The Beatles", "album": "Abbey Road", "duration": 259, "track": 1, "coverArt": "al-1"},
					{"id": "s2", "title": "Something", "artist": "The Beatles", "album": "Abbey Road", "duration": 183, "track": 2, "coverArt": "al-1"},
				},
			},
		}))
	})

	tracks, err := c.Resolve(context.Background(), catalog.Selection{AlbumID: "al-1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].Title != "Come Together" || tracks[0].DurationMs != 259000 {
		t.Fatalf("bad first track: %+v", tracks[0])
	}
}

func TestResolveSongListIsLocal(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	})
	songs := []catalog.Track{{ID: "a"}, {ID: "b"}}
	tracks, err := c.Resolve(context.Background(), catalog.Selection{Songs: songs})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tracks) != 2 || tracks[1].ID != "b" {
		t.Fatalf("unexpected tracks: %+v", tracks)
	}
}

func TestStreamURLQuality(t *testing.T) {
	c := NewWithConfig(Config{BaseURL: "http://srv", Username: "u", Password: "p"})

	cases := []struct {
		quality catalog.Quality
		format  string
		bitrate string
	}{
		{catalog.QualityRaw, "raw", ""},
		{catalog.QualityMP3, "mp3", "320"},
		{catalog.QualityOpus, "opus", "128"},
		{catalog.QualityAAC, "aac", "256"},
	}
	for _, tc := range cases {
		raw := c.StreamURL("song-9", tc.quality)
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		q := u.Query()
		if q.Get("format") != tc.format {
			t.Errorf("%s: format = %q, want %q", tc.quality, q.Get("format"), tc.format)
		}
		if q.Get("maxBitRate") != tc.bitrate {
			t.Errorf("%s: maxBitRate = %q, want %q", tc.quality, q.Get("maxBitRate"), tc.bitrate)
		}
		if q.Get("id") != "song-9" {
			t.Errorf("%s: id = %q", tc.quality, q.Get("id"))
		}
		// Token auth, not the raw password.
		if q.Get("t") == "" || q.Get("s") == "" || strings.Contains(raw, "p=") {
			t.Errorf("%s: missing token auth in %q", tc.quality, raw)
		}
	}
}

func TestScrobbleSubmissionFlag(t *testing.T) {
	var gotSubmission []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/scrobble" {
			w.WriteHeader(404)
			return
		}
		gotSubmission = append(gotSubmission, r.URL.Query().Get("submission"))
		json.NewEncoder(w).Encode(okResponse(nil))
	})

	if err := c.NowPlaying(context.Background(), "s1"); err != nil {
		t.Fatalf("now playing: %v", err)
	}
	if err := c.Scrobble(context.Background(), "s1"); err != nil {
		t.Fatalf("scrobble: %v", err)
	}
	if len(gotSubmission) != 2 || gotSubmission[0] != "false" || gotSubmission[1] != "true" {
		t.Fatalf("submission flags = %v", gotSubmission)
	}
}

func TestErrorMapping(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"subsonic-response": map[string]any{
				"status": "failed",
				"error":  map[string]any{"code": 40, "message": "Wrong username or password"},
			},
		})
	})
	err := c.Ping(context.Background())
	if !catalog.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
