package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Options configures the mpv-backed handle.
type Options struct {
	MPVPath        string
	IPCPath        string
	Logger         *slog.Logger
	DisableProcess bool
	Dial           func(ctx context.Context, network, addr string) (net.Conn, error)
	ExtraArgs      []string
}

// MPV drives an mpv process over its JSON IPC socket and implements
// Handle.
type MPV struct {
	opts   Options
	cmd    *exec.Cmd
	conn   net.Conn
	mu     sync.Mutex
	volume float64
	events chan Event
	done   chan struct{}
}

var _ Handle = (*MPV)(nil)

func NewMPV(opts Options) *MPV {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MPV{
		opts:   opts,
		volume: 1,
		events: make(chan Event, 32),
		done:   make(chan struct{}),
	}
}

func defaultIPCPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\clickwheel-mpv`
	}
	return filepath.Join(os.TempDir(), "clickwheel-mpv.sock")
}

// Start launches mpv (unless disabled) and connects to the IPC socket.
func (m *MPV) Start(ctx context.Context) error {
	m.mu.Lock()
	select {
	case <-m.done:
		m.done = make(chan struct{})
	default:
	}
	m.mu.Unlock()

	if m.opts.IPCPath == "" {
		m.opts.IPCPath = defaultIPCPath()
	}
	if !m.opts.DisableProcess {
		if err := m.spawn(ctx); err != nil {
			m.opts.Logger.Error("failed to spawn mpv", slog.Any("err", err))
			return err
		}
	}
	if err := m.connect(ctx); err != nil {
		m.opts.Logger.Error("failed to connect to mpv ipc", slog.Any("err", err))
		return err
	}
	if err := m.observeProperties(); err != nil {
		return err
	}
	go m.readLoop()
	m.opts.Logger.Debug("output handle started", slog.String("ipc_path", m.opts.IPCPath))
	return nil
}

func (m *MPV) spawn(ctx context.Context) error {
	args := []string{
		"--idle=yes",
		"--force-window=no",
		"--no-terminal",
		"--no-video",
		"--input-ipc-server=" + m.opts.IPCPath,
	}
	args = append(args, m.opts.ExtraArgs...)
	m.cmd = exec.CommandContext(ctx, m.opts.MPVPath, args...)
	if err := m.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}
	m.opts.Logger.Debug("mpv process started", slog.Int("pid", m.cmd.Process.Pid))
	return nil
}

func (m *MPV) connect(ctx context.Context) error {
	dial := m.opts.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: 5 * time.Second}).DialContext
	}
	var conn net.Conn
	var err error
	baseDelay := 50 * time.Millisecond
	maxDelay := 500 * time.Millisecond
	maxRetries := 10
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < maxRetries; i++ {
		conn, err = dial(ctx, "unix", m.opts.IPCPath)
		if err == nil {
			m.conn = conn
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connect mpv ipc: %w", ctx.Err())
		default:
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(i))
			if delay > maxDelay {
				delay = maxDelay
			}
			jitter := time.Duration(float64(delay) * 0.2 * rng.Float64())
			time.Sleep(delay + jitter)
		}
	}
	return fmt.Errorf("connect mpv ipc: %w", err)
}

func (m *MPV) observeProperties() error {
	props := []string{"time-pos", "duration", "pause"}
	for i, p := range props {
		if err := m.send(map[string]any{
			"command": []any{"observe_property", i + 1, p},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MPV) Events() <-chan Event { return m.events }

func (m *MPV) send(cmd map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return fmt.Errorf("mpv not connected")
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	_, err = m.conn.Write(append(b, '\n'))
	return err
}

// Load replaces the current source and starts playing at startAt seconds.
func (m *MPV) Load(url string, startAt float64) error {
	m.opts.Logger.Debug("loading source", slog.String("url", url), slog.Float64("start_at", startAt))
	opts := "pause=no"
	if startAt > 0 {
		opts = fmt.Sprintf("start=%.3f,pause=no", startAt)
	}
	err := m.send(map[string]any{
		"command": []any{"loadfile", url, "replace", opts},
	})
	if err != nil {
		m.opts.Logger.Error("failed to send load command", slog.Any("err", err))
	}
	return err
}

func (m *MPV) Pause(paused bool) error {
	return m.send(map[string]any{"command": []any{"set_property", "pause", paused}})
}

func (m *MPV) SeekTo(seconds float64) error {
	return m.send(map[string]any{"command": []any{"seek", seconds, "absolute"}})
}

// SetVolume takes a volume in [0,1] and maps it onto mpv's 0-100 scale.
func (m *MPV) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.mu.Lock()
	m.volume = v
	m.mu.Unlock()
	return m.send(map[string]any{"command": []any{"set_property", "volume", v * 100}})
}

func (m *MPV) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *MPV) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
	default:
		close(m.done)
	}

	if m.conn != nil {
		b, _ := json.Marshal(map[string]any{"command": []any{"quit"}})
		_, _ = m.conn.Write(append(b, '\n'))
		_ = m.conn.Close()
		m.conn = nil
	}
	if m.cmd != nil && m.cmd.Process != nil {
		_ = m.cmd.Process.Kill()
		_ = m.cmd.Wait()
		m.cmd = nil
	}
	return nil
}

func (m *MPV) readLoop() {
	defer close(m.events)
	scanner := bufio.NewScanner(m.conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		var msg ipcMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			m.events <- Event{Err: fmt.Errorf("decode: %w", err)}
			continue
		}
		switch msg.Event {
		case "property-change":
			m.handlePropertyChange(msg)
		case "file-loaded":
			m.events <- Event{Loaded: true}
		case "end-file":
			// "stop" fires when a new source replaces the old one,
			// "eof" only on natural end.
			m.events <- Event{
				Ended:     msg.Reason == "eof",
				EndReason: msg.Reason,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		m.events <- Event{Err: err}
	}
}

type ipcMessage struct {
	Event  string      `json:"event"`
	Name   string      `json:"name"`
	Data   interface{} `json:"data"`
	Reason string      `json:"reason"`
}

func (m *MPV) handlePropertyChange(msg ipcMessage) {
	switch msg.Name {
	case "time-pos":
		if v, ok := toFloat(msg.Data); ok {
			m.events <- Event{TimePos: &v}
		}
	case "duration":
		if v, ok := toFloat(msg.Data); ok {
			m.events <- Event{Duration: &v}
		}
	case "pause":
		if b, ok := msg.Data.(bool); ok {
			m.events <- Event{Paused: &b}
		}
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
