// Package output defines the audio output handle the playback engine
// drives. The engine owns exactly one handle, injected at construction;
// all mutation funnels through engine operations.
package output

// Event describes playback state updates emitted by the output backend.
// Pointer fields are nil when the event does not carry that property.
type Event struct {
	TimePos   *float64 // seconds
	Duration  *float64 // seconds
	Paused    *bool
	Loaded    bool   // a new source finished loading and is ready
	Ended     bool   // true only when the track ended naturally
	EndReason string // "eof", "stop", "quit", "error", "redirect"
	Err       error
}

// Handle is a single audio output the engine binds tracks to.
type Handle interface {
	// Load binds url to the output and starts playback at startAt
	// seconds, replacing any current source.
	Load(url string, startAt float64) error

	// Pause sets the paused state.
	Pause(paused bool) error

	// SeekTo jumps to an absolute position in seconds.
	SeekTo(seconds float64) error

	// SetVolume sets the output volume in [0,1].
	SetVolume(v float64) error

	// Volume returns the last volume applied to the output.
	Volume() float64

	// Stop tears the output down.
	Stop() error

	// Events returns the event stream. Closed on Stop.
	Events() <-chan Event
}
