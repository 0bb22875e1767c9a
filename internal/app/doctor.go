package app

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/clickwheel/clickwheel/internal/config"
)

// CheckResult is one line of doctor output.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// DoctorDeps are the environment probes, injectable for tests.
type DoctorDeps struct {
	// LookPath resolves a binary on PATH. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	// Ping probes the active backend. Nil when the backend has no
	// network side (the check is reported as skipped).
	Ping func(ctx context.Context) error
}

// Doctor runs fast setup checks without starting playback: mpv on the
// path, an enabled active profile, and backend reachability.
func Doctor(ctx context.Context, cfg *config.Config, deps DoctorDeps) []CheckResult {
	lookPath := deps.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var results []CheckResult

	if path, err := lookPath(cfg.Player.MPVPath); err != nil {
		results = append(results, CheckResult{
			Name:   "mpv",
			Detail: fmt.Sprintf("%s not found", cfg.Player.MPVPath),
		})
	} else {
		results = append(results, CheckResult{Name: "mpv", OK: true, Detail: path})
	}

	profile, ok := cfg.ProfileByID(cfg.ActiveProfile)
	switch {
	case !ok:
		results = append(results, CheckResult{
			Name:   "profile",
			Detail: fmt.Sprintf("active profile %q not found", cfg.ActiveProfile),
		})
	case !profile.Enabled:
		results = append(results, CheckResult{
			Name:   "profile",
			Detail: fmt.Sprintf("profile %q is disabled", profile.ID),
		})
	default:
		results = append(results, CheckResult{
			Name:   "profile",
			OK:     true,
			Detail: fmt.Sprintf("%s (%s backend)", profile.ID, profile.Backend),
		})
	}

	if deps.Ping == nil {
		results = append(results, CheckResult{Name: "backend", OK: true, Detail: "no network check"})
	} else if err := deps.Ping(ctx); err != nil {
		results = append(results, CheckResult{Name: "backend", Detail: err.Error()})
	} else {
		results = append(results, CheckResult{Name: "backend", OK: true, Detail: "reachable"})
	}

	return results
}
