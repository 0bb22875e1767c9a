package catalog

import "context"

// Quality selects the stream transcoding format requested from the server.
type Quality string

const (
	QualityRaw  Quality = "raw"
	QualityMP3  Quality = "mp3"
	QualityOpus Quality = "opus"
	QualityAAC  Quality = "aac"
)

// ParseQuality returns the Quality for s, or QualityRaw when s is not a
// known format.
func ParseQuality(s string) Quality {
	switch Quality(s) {
	case QualityMP3, QualityOpus, QualityAAC:
		return Quality(s)
	default:
		return QualityRaw
	}
}

// Track is an immutable catalog record. The playback engine holds copies
// by value in its queue.
type Track struct {
	ID         string
	Title      string
	ArtistName string
	AlbumName  string
	DurationMs int
	TrackNo    int
	ArtworkRef string
}

type Album struct {
	ID         string
	Title      string
	ArtistName string
	Year       int
	ArtworkRef string
	Songs      []Track
}

type Artist struct {
	ID         string
	Name       string
	AlbumCount int
}

type Playlist struct {
	ID    string
	Name  string
	Songs []Track
}

// Selection names the tracks a transport operation should act on. Exactly
// one field group is set: an explicit song list (with optional start
// position), a single song, an album ID, or a playlist ID.
type Selection struct {
	Songs         []Track
	StartPosition int
	Song          *Track
	AlbumID       string
	PlaylistID    string
}

// Browser lists catalog contents for the menu screens. Implemented by
// the same backends that implement Client.
type Browser interface {
	ListAlbums(ctx context.Context, offset, size int) ([]Album, error)
	ListArtists(ctx context.Context) ([]Artist, error)
	ArtistAlbums(ctx context.Context, artistID string) ([]Album, error)
	ListPlaylists(ctx context.Context) ([]Playlist, error)
}

// Client is the remote catalog consumed by the playback engine. The engine
// never fetches data itself; everything it needs arrives through this
// interface.
type Client interface {
	// Resolve flattens a selection into its track list. Album and
	// playlist selections hit the backend; song lists resolve locally.
	Resolve(ctx context.Context, sel Selection) ([]Track, error)

	// StreamURL returns the stream locator for a track at the given
	// quality.
	StreamURL(trackID string, q Quality) string

	// ArtworkURL returns the artwork locator for a ref at the given
	// pixel size.
	ArtworkURL(ref string, sizePx int) string

	// NowPlaying reports that a track was armed for playback.
	NowPlaying(ctx context.Context, trackID string) error

	// Scrobble submits a play-count record for a track.
	Scrobble(ctx context.Context, trackID string) error

	IsAuthenticated() bool
}
