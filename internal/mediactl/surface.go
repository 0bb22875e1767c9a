package mediactl

import (
	"log/slog"
	"sync"
)

// LogSurface is a Surface with no OS backing. It records the mirrored
// state and logs transitions at debug level, so the bridge stays wired
// on platforms without a now-playing integration.
type LogSurface struct {
	log *slog.Logger

	mu       sync.Mutex
	metadata Metadata
	state    PlaybackState
	position Position
	handlers map[Command]Handler
}

var _ Surface = (*LogSurface)(nil)

func NewLogSurface(logger *slog.Logger) *LogSurface {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSurface{
		log:      logger,
		state:    StateNone,
		handlers: make(map[Command]Handler),
	}
}

func (s *LogSurface) SetMetadata(md Metadata) {
	s.mu.Lock()
	s.metadata = md
	s.mu.Unlock()
	s.log.Debug("media surface metadata", slog.String("title", md.Title), slog.String("artist", md.Artist))
}

func (s *LogSurface) SetPlaybackState(state PlaybackState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed {
		s.log.Debug("media surface state", slog.String("state", string(state)))
	}
}

func (s *LogSurface) SetPosition(pos Position) {
	s.mu.Lock()
	s.position = pos
	s.mu.Unlock()
}

func (s *LogSurface) RegisterHandler(cmd Command, fn Handler) {
	s.mu.Lock()
	s.handlers[cmd] = fn
	s.mu.Unlock()
}

func (s *LogSurface) Withdraw(cmd Command) {
	s.mu.Lock()
	delete(s.handlers, cmd)
	s.mu.Unlock()
}

// Invoke runs a registered handler, if present. Lets tooling and tests
// drive the surface as the OS would.
func (s *LogSurface) Invoke(cmd Command, arg float64) bool {
	s.mu.Lock()
	fn, ok := s.handlers[cmd]
	s.mu.Unlock()
	if !ok {
		return false
	}
	fn(arg)
	return true
}

// State returns the last mirrored playback state.
func (s *LogSurface) State() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
