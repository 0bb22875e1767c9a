package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clickwheel/clickwheel/internal/catalog"
)

func writeLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	albumDir := filepath.Join(dir, "Some Album")
	if err := os.MkdirAll(albumDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"01 one.mp3", "02 two.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(albumDir, name), []byte("fake audio"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(albumDir, "cover.jpg"), []byte("fake art"), 0o644); err != nil {
		t.Fatalf("write cover: %v", err)
	}
	return dir
}

func TestScanBuildsAlbums(t *testing.T) {
	dir := writeLibrary(t)
	lib, err := New(map[string]any{"roots": []any{dir}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	albums, err := lib.ListAlbums(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("list albums: %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("albums = %d, want 1", len(albums))
	}
	album := albums[0]
	if album.Title != "Some Album" {
		t.Fatalf("album title = %q", album.Title)
	}
	if len(album.Songs) != 2 {
		t.Fatalf("songs = %d, want 2 (non-audio files must be skipped)", len(album.Songs))
	}
	if album.ArtworkRef == "" {
		t.Fatal("cover.jpg not picked up as artwork")
	}
}

func TestResolveAlbumAndStream(t *testing.T) {
	dir := writeLibrary(t)
	lib, err := New(map[string]any{"roots": []any{dir}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	albums, err := lib.ListAlbums(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("list albums: %v", err)
	}

	tracks, err := lib.Resolve(context.Background(), catalog.Selection{AlbumID: albums[0].ID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d", len(tracks))
	}

	u := lib.StreamURL(tracks[0].ID, catalog.QualityMP3)
	if !strings.HasPrefix(u, "file://") {
		t.Fatalf("stream url = %q, want file locator", u)
	}
}

func TestResolveUnknownAlbumIsNotFound(t *testing.T) {
	dir := writeLibrary(t)
	lib, err := New(map[string]any{"roots": []any{dir}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = lib.Resolve(context.Background(), catalog.Selection{AlbumID: "missing"})
	if !catalog.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestNewRejectsEmptyRoots(t *testing.T) {
	if _, err := New(map[string]any{}); err == nil {
		t.Fatal("expected config error for missing roots")
	}
}

func TestListArtists(t *testing.T) {
	dir := writeLibrary(t)
	lib, err := New(map[string]any{"roots": []any{dir}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	artists, err := lib.ListArtists(context.Background())
	if err != nil {
		t.Fatalf("list artists: %v", err)
	}
	if len(artists) != 1 || artists[0].Name != "Unknown Artist" || artists[0].AlbumCount != 1 {
		t.Fatalf("artists = %+v", artists)
	}

	albums, err := lib.ArtistAlbums(context.Background(), artists[0].ID)
	if err != nil {
		t.Fatalf("artist albums: %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("artist albums = %d", len(albums))
	}
}
