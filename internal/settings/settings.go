// Package settings persists process-wide playback settings to SQLite.
// Each setting is an independent key/value row, read once at startup and
// written immediately on change.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/clickwheel/clickwheel/internal/catalog"
	_ "modernc.org/sqlite"
)

const (
	keyVolume    = "volume"
	keyLoopTrack = "loop_track"
	keyLoopQueue = "loop_queue"
	keyQuality   = "quality"
	keyFadeIn    = "fade_in_seconds"
	keyFadeOut   = "fade_out_seconds"
)

// fadeDurations are the selectable fade window lengths, in seconds.
var fadeDurations = []int{0, 3, 5, 7, 10}

// Playback is the persisted playback settings snapshot.
type Playback struct {
	Volume     float64 // 0..1
	LoopTrack  bool
	LoopQueue  bool
	Quality    catalog.Quality
	FadeInSec  int
	FadeOutSec int
}

func defaults() Playback {
	return Playback{
		Volume:  0.5,
		Quality: catalog.QualityRaw,
	}
}

// ValidFadeDuration reports whether d is one of the selectable fade
// windows.
func ValidFadeDuration(d int) bool {
	for _, v := range fadeDurations {
		if v == d {
			return true
		}
	}
	return false
}

// FadeDurations returns the selectable fade windows in seconds.
func FadeDurations() []int {
	out := make([]int, len(fadeDurations))
	copy(out, fadeDurations)
	return out
}

// Store handles settings persistence to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the settings database at dbPath.
// An empty path uses the default state location.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve settings db path: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func defaultDBPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(dir, "Clickwheel", "state")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(dir, "clickwheel", "state")
	}
	return filepath.Join(base, "settings.db"), nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS playback_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("migrate settings schema: %w", err)
	}
	return nil
}

// Load reads all settings, falling back to defaults for missing or
// malformed rows.
func (s *Store) Load(ctx context.Context) (Playback, error) {
	p := defaults()
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM playback_settings`)
	if err != nil {
		return p, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return p, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case keyVolume:
			if v, err := strconv.ParseFloat(value, 64); err == nil && v >= 0 && v <= 1 {
				p.Volume = v
			}
		case keyLoopTrack:
			p.LoopTrack = value == "true"
		case keyLoopQueue:
			p.LoopQueue = value == "true"
		case keyQuality:
			p.Quality = catalog.ParseQuality(value)
		case keyFadeIn:
			if v, err := strconv.Atoi(value); err == nil && ValidFadeDuration(v) {
				p.FadeInSec = v
			}
		case keyFadeOut:
			if v, err := strconv.Atoi(value); err == nil && ValidFadeDuration(v) {
				p.FadeOutSec = v
			}
		}
	}
	return p, rows.Err()
}

func (s *Store) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playback_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) SetVolume(ctx context.Context, v float64) error {
	return s.put(ctx, keyVolume, strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *Store) SetLoopTrack(ctx context.Context, on bool) error {
	return s.put(ctx, keyLoopTrack, strconv.FormatBool(on))
}

func (s *Store) SetLoopQueue(ctx context.Context, on bool) error {
	return s.put(ctx, keyLoopQueue, strconv.FormatBool(on))
}

func (s *Store) SetQuality(ctx context.Context, q catalog.Quality) error {
	return s.put(ctx, keyQuality, string(q))
}

func (s *Store) SetFadeIn(ctx context.Context, seconds int) error {
	if !ValidFadeDuration(seconds) {
		return fmt.Errorf("invalid fade duration %d", seconds)
	}
	return s.put(ctx, keyFadeIn, strconv.Itoa(seconds))
}

func (s *Store) SetFadeOut(ctx context.Context, seconds int) error {
	if !ValidFadeDuration(seconds) {
		return fmt.Errorf("invalid fade duration %d", seconds)
	}
	return s.put(ctx, keyFadeOut, strconv.Itoa(seconds))
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
