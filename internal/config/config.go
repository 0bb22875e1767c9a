package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds Clickwheel runtime configuration loaded from TOML.
type Config struct {
	ConfigVersion int           `toml:"config_version"`
	ActiveProfile string        `toml:"active_profile"`
	UI            UIConfig      `toml:"ui"`
	Player        PlayerConfig  `toml:"player"`
	Preload       PreloadConfig `toml:"preload"`
	Keybindings   KeybindConfig `toml:"keybindings"`
	Profiles      []Profile     `toml:"profiles"`
}

type UIConfig struct {
	PageSize     int    `toml:"page_size"`
	Theme        string `toml:"theme"`
	VisibleRows  int    `toml:"visible_rows"`
	PreviewDelay int    `toml:"preview_delay_ms"`
}

type PlayerConfig struct {
	MPVPath        string `toml:"mpv_path"`
	IPC            string `toml:"ipc"`
	NetworkTimeout int    `toml:"network_timeout_ms"`
}

// PreloadConfig tunes the upcoming-track warmer.
type PreloadConfig struct {
	Enabled     bool `toml:"enabled"`
	SettleMs    int  `toml:"settle_ms"`
	TracksAhead int  `toml:"tracks_ahead"`
}

// KeybindConfig maps terminal keys onto the click wheel.
type KeybindConfig struct {
	WheelForward  string `toml:"wheel_forward"`
	WheelBackward string `toml:"wheel_backward"`
	Select        string `toml:"select"`
	LongPress     string `toml:"long_press"`
	Menu          string `toml:"menu"`
	PlayPause     string `toml:"play_pause"`
	NextTrack     string `toml:"next_track"`
	PrevTrack     string `toml:"prev_track"`
	VolumeUp      string `toml:"volume_up"`
	VolumeDown    string `toml:"volume_down"`
	Quit          string `toml:"quit"`
}

// Profile selects and configures one catalog backend.
type Profile struct {
	ID       string         `toml:"id"`
	Name     string         `toml:"name"`
	Backend  string         `toml:"backend"` // "subsonic" or "local"
	Enabled  bool           `toml:"enabled"`
	Settings map[string]any `toml:"settings"`
}

// Load reads configuration from disk. If path is empty, a default
// OS-specific location is used.
func Load(path string) (*Config, string, error) {
	cfgPath := path
	if cfgPath == "" {
		var err error
		cfgPath, err = defaultPath()
		if err != nil {
			return nil, "", fmt.Errorf("resolve config path: %w", err)
		}
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return nil, cfgPath, err
	}

	return &cfg, cfgPath, nil
}

func defaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	name := "clickwheel"
	if runtime.GOOS == "windows" {
		name = "Clickwheel"
	}
	base := filepath.Join(dir, name)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(base, "config.toml"), nil
}

func applyDefaults(cfg *Config) {
	if cfg.UI.PageSize == 0 {
		cfg.UI.PageSize = 100
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = "classic"
	}
	if cfg.UI.VisibleRows == 0 {
		cfg.UI.VisibleRows = 9
	}
	if cfg.UI.PreviewDelay == 0 {
		cfg.UI.PreviewDelay = 750
	}
	if cfg.Player.MPVPath == "" {
		cfg.Player.MPVPath = "mpv"
	}
	if cfg.Player.NetworkTimeout == 0 {
		cfg.Player.NetworkTimeout = 8000
	}
	if cfg.Preload.SettleMs == 0 {
		cfg.Preload.SettleMs = 2000
	}
	if cfg.Preload.TracksAhead == 0 {
		cfg.Preload.Enabled = true
		cfg.Preload.TracksAhead = 2
	}
	if cfg.Keybindings.WheelForward == "" {
		cfg.Keybindings.WheelForward = "down,j"
	}
	if cfg.Keybindings.WheelBackward == "" {
		cfg.Keybindings.WheelBackward = "up,k"
	}
	if cfg.Keybindings.Select == "" {
		cfg.Keybindings.Select = "enter"
	}
	if cfg.Keybindings.LongPress == "" {
		cfg.Keybindings.LongPress = "o"
	}
	if cfg.Keybindings.Menu == "" {
		cfg.Keybindings.Menu = "esc"
	}
	if cfg.Keybindings.PlayPause == "" {
		cfg.Keybindings.PlayPause = "space"
	}
	if cfg.Keybindings.NextTrack == "" {
		cfg.Keybindings.NextTrack = "n"
	}
	if cfg.Keybindings.PrevTrack == "" {
		cfg.Keybindings.PrevTrack = "p"
	}
	if cfg.Keybindings.VolumeUp == "" {
		cfg.Keybindings.VolumeUp = "+"
	}
	if cfg.Keybindings.VolumeDown == "" {
		cfg.Keybindings.VolumeDown = "-"
	}
	if cfg.Keybindings.Quit == "" {
		cfg.Keybindings.Quit = "q,ctrl+c"
	}
}

// Validate performs semantic validation of the loaded config.
func Validate(cfg Config) error {
	if cfg.ActiveProfile == "" {
		return errors.New("active_profile is required")
	}
	profile, ok := cfg.ProfileByID(cfg.ActiveProfile)
	if !ok {
		return fmt.Errorf("active_profile %q not found", cfg.ActiveProfile)
	}
	if !profile.Enabled {
		return fmt.Errorf("active_profile %q is disabled", cfg.ActiveProfile)
	}
	if _, err := os.Stat(cfg.Player.MPVPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, lookErr := execLookPath(cfg.Player.MPVPath); lookErr != nil {
				return fmt.Errorf("mpv not found (%s): %w", cfg.Player.MPVPath, lookErr)
			}
		}
	}

	switch profile.Backend {
	case "subsonic":
		if err := validateSubsonic(profile.Settings); err != nil {
			return err
		}
	case "local":
		if err := validateLocal(profile.Settings); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown backend: %s", profile.Backend)
	}
	return nil
}

func validateSubsonic(settings map[string]any) error {
	baseURL, _ := settings["base_url"].(string)
	if baseURL == "" {
		return errors.New("subsonic.base_url is required")
	}
	username, _ := settings["username"].(string)
	if username == "" {
		return errors.New("subsonic.username is required")
	}
	password, _ := settings["password"].(string)
	passwordEnv, _ := settings["password_env"].(string)
	if password == "" && passwordEnv == "" {
		return errors.New("subsonic.password or subsonic.password_env is required")
	}
	return nil
}

func validateLocal(settings map[string]any) error {
	roots, ok := settings["roots"].([]any)
	if !ok || len(roots) == 0 {
		return errors.New("local.roots is required")
	}
	for _, r := range roots {
		s, _ := r.(string)
		if s == "" {
			return errors.New("local.roots contains empty path")
		}
		if _, err := os.Stat(s); err != nil {
			return fmt.Errorf("local root %s: %w", s, err)
		}
	}
	return nil
}

// ProfileByID returns the profile and true when found.
func (c Config) ProfileByID(id string) (Profile, bool) {
	for _, p := range c.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return Profile{}, false
}

// DeadlineContext returns a context bounded by the configured network
// timeout.
func (c Config) DeadlineContext() (context.Context, context.CancelFunc) {
	d := time.Duration(c.Player.NetworkTimeout) * time.Millisecond
	if d == 0 {
		d = 8 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

// execLookPath is a test seam.
var execLookPath = func(file string) (string, error) {
	return exec.LookPath(file)
}
