// Package local serves a catalog from a directory tree of audio files.
// Tags are read once at scan time; streams are file locators, so no
// transcoding applies and every quality maps to the original file.
package local

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dhowden/tag"

	"github.com/clickwheel/clickwheel/internal/catalog"
)

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".wav":  true,
	".opus": true,
}

// artworkNames are checked per album directory, first match wins.
var artworkNames = []string{"cover.jpg", "cover.png", "folder.jpg", "folder.png", "front.jpg"}

type Config struct {
	Roots  []string
	Logger *slog.Logger
}

type albumRec struct {
	album    catalog.Album
	artistID string
}

// Library is an in-memory catalog over scanned files. It implements
// both catalog.Client and catalog.Browser; scrobbles are logged no-ops
// since there is no backend to report to.
type Library struct {
	log *slog.Logger

	mu      sync.RWMutex
	paths   map[string]string // track ID -> file path
	albums  map[string]*albumRec
	artists map[string]*catalog.Artist
}

// New builds a library from a config profile's settings table.
func New(settings map[string]any) (*Library, error) {
	var cfg Config
	if v, ok := settings["roots"].([]any); ok {
		for _, r := range v {
			if s, ok := r.(string); ok {
				cfg.Roots = append(cfg.Roots, s)
			}
		}
	}
	if len(cfg.Roots) == 0 {
		return nil, catalog.ErrInvalidConfig
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Library, error) {
	if len(cfg.Roots) == 0 {
		return nil, catalog.ErrInvalidConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	l := &Library{
		log:     logger,
		paths:   make(map[string]string),
		albums:  make(map[string]*albumRec),
		artists: make(map[string]*catalog.Artist),
	}
	for _, root := range cfg.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		if err := l.scanRoot(abs); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func hashID(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (l *Library) scanRoot(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !allowedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		l.addFile(path)
		return nil
	})
}

func (l *Library) addFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		l.log.Debug("skip unreadable file", slog.String("path", path), slog.Any("err", err))
		return
	}
	defer f.Close()

	var artistName, albumTitle, trackTitle string
	var trackNo, year int
	if meta, err := tag.ReadFrom(f); err == nil {
		artistName = meta.Artist()
		albumTitle = meta.Album()
		trackTitle = meta.Title()
		trackNo, _ = meta.Track()
		year = meta.Year()
	}
	if artistName == "" {
		artistName = "Unknown Artist"
	}
	if albumTitle == "" {
		albumTitle = filepath.Base(filepath.Dir(path))
		if albumTitle == "." || albumTitle == "/" {
			albumTitle = "Unknown Album"
		}
	}
	if trackTitle == "" {
		trackTitle = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	artistID := hashID(strings.ToLower(artistName))
	albumID := hashID(artistID, strings.ToLower(albumTitle))
	trackID := hashID(path)

	track := catalog.Track{
		ID:         trackID,
		Title:      trackTitle,
		ArtistName: artistName,
		AlbumName:  albumTitle,
		TrackNo:    trackNo,
		ArtworkRef: albumArtwork(filepath.Dir(path)),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths[trackID] = path
	if _, ok := l.artists[artistID]; !ok {
		l.artists[artistID] = &catalog.Artist{ID: artistID, Name: artistName}
	}
	rec, ok := l.albums[albumID]
	if !ok {
		rec = &albumRec{
			album: catalog.Album{
				ID:         albumID,
				Title:      albumTitle,
				ArtistName: artistName,
				Year:       year,
				ArtworkRef: track.ArtworkRef,
			},
			artistID: artistID,
		}
		l.albums[albumID] = rec
		l.artists[artistID].AlbumCount++
	}
	rec.album.Songs = append(rec.album.Songs, track)
	sort.Slice(rec.album.Songs, func(i, j int) bool {
		a, b := rec.album.Songs[i], rec.album.Songs[j]
		if a.TrackNo != b.TrackNo {
			return a.TrackNo < b.TrackNo
		}
		return a.Title < b.Title
	})
}

func albumArtwork(dir string) string {
	for _, name := range artworkNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (l *Library) IsAuthenticated() bool { return true }

func (l *Library) Resolve(_ context.Context, sel catalog.Selection) ([]catalog.Track, error) {
	switch {
	case len(sel.Songs) > 0:
		out := make([]catalog.Track, len(sel.Songs))
		copy(out, sel.Songs)
		return out, nil
	case sel.Song != nil:
		return []catalog.Track{*sel.Song}, nil
	case sel.AlbumID != "":
		l.mu.RLock()
		defer l.mu.RUnlock()
		rec, ok := l.albums[sel.AlbumID]
		if !ok {
			return nil, fmt.Errorf("album %s: %w", sel.AlbumID, catalog.ErrNotFound)
		}
		out := make([]catalog.Track, len(rec.album.Songs))
		copy(out, rec.album.Songs)
		return out, nil
	case sel.PlaylistID != "":
		return nil, fmt.Errorf("playlist %s: %w", sel.PlaylistID, catalog.ErrNotFound)
	}
	return nil, nil
}

// StreamURL returns a file locator. Quality is ignored: local playback
// always uses the original file.
func (l *Library) StreamURL(trackID string, _ catalog.Quality) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	path, ok := l.paths[trackID]
	if !ok {
		return ""
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String()
}

// ArtworkURL returns the artwork file locator. Size is ignored.
func (l *Library) ArtworkURL(ref string, _ int) string {
	if ref == "" {
		return ""
	}
	u := url.URL{Scheme: "file", Path: ref}
	return u.String()
}

func (l *Library) NowPlaying(_ context.Context, trackID string) error {
	l.log.Debug("now playing", slog.String("track_id", trackID))
	return nil
}

func (l *Library) Scrobble(_ context.Context, trackID string) error {
	l.log.Debug("scrobble", slog.String("track_id", trackID))
	return nil
}

func (l *Library) ListAlbums(_ context.Context, offset, size int) ([]catalog.Album, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := make([]catalog.Album, 0, len(l.albums))
	for _, rec := range l.albums {
		all = append(all, rec.album)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if size > 0 && size < len(all) {
		all = all[:size]
	}
	return all, nil
}

func (l *Library) ListArtists(_ context.Context) ([]catalog.Artist, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]catalog.Artist, 0, len(l.artists))
	for _, a := range l.artists {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (l *Library) ArtistAlbums(_ context.Context, artistID string) ([]catalog.Album, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []catalog.Album
	for _, rec := range l.albums {
		if rec.artistID == artistID {
			out = append(out, rec.album)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// ListPlaylists always returns empty: the filesystem backend has no
// playlist store.
func (l *Library) ListPlaylists(context.Context) ([]catalog.Playlist, error) {
	return nil, nil
}
