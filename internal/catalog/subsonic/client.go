// Package subsonic implements the catalog client against a
// Subsonic-compatible REST API (Navidrome, Gonic, Airsonic).
package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/clickwheel/clickwheel/internal/catalog"
)

const (
	apiVersion = "1.16.1"
	clientName = "clickwheel"
)

type Config struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

type Client struct {
	cfg    Config
	client *http.Client
	salt   string
	token  string
}

// New builds a client from profile settings. Password may be supplied
// directly or via the environment variable named in password_env.
func New(settings map[string]any) (*Client, error) {
	cfg := Config{}
	if v, ok := settings["base_url"].(string); ok {
		cfg.BaseURL = v
	}
	if v, ok := settings["username"].(string); ok {
		cfg.Username = v
	}
	if v, ok := settings["password"].(string); ok {
		cfg.Password = v
	}
	if v, ok := settings["password_env"].(string); ok && cfg.Password == "" {
		cfg.Password = os.Getenv(v)
	}
	if cfg.BaseURL == "" {
		return nil, catalog.ErrInvalidConfig
	}
	return NewWithConfig(cfg), nil
}

func NewWithConfig(cfg Config) *Client {
	c := &Client{cfg: cfg}
	if cfg.HTTPClient != nil {
		c.client = cfg.HTTPClient
	} else {
		c.client = &http.Client{Timeout: 8 * time.Second}
	}
	c.salt = newSalt()
	// Subsonic token auth: md5(password + salt), never the raw password.
	sum := md5.Sum([]byte(cfg.Password + c.salt))
	c.token = hex.EncodeToString(sum[:])
	return c
}

func newSalt() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (c *Client) IsAuthenticated() bool {
	return c.cfg.BaseURL != "" && c.cfg.Username != "" && c.cfg.Password != ""
}

// Ping checks connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct{}
	return c.get(ctx, "ping", nil, &resp)
}

func (c *Client) Resolve(ctx context.Context, sel catalog.Selection) ([]catalog.Track, error) {
	switch {
	case len(sel.Songs) > 0:
		return sel.Songs, nil
	case sel.Song != nil:
		return []catalog.Track{*sel.Song}, nil
	case sel.AlbumID != "":
		return c.albumSongs(ctx, sel.AlbumID)
	case sel.PlaylistID != "":
		return c.playlistSongs(ctx, sel.PlaylistID)
	default:
		return nil, nil
	}
}

func (c *Client) albumSongs(ctx context.Context, id string) ([]catalog.Track, error) {
	var resp struct {
		Album struct {
			Song []song `json:"song"`
		} `json:"album"`
	}
	if err := c.get(ctx, "getAlbum", url.Values{"id": {id}}, &resp); err != nil {
		return nil, err
	}
	return mapSongs(resp.Album.Song), nil
}

func (c *Client) playlistSongs(ctx context.Context, id string) ([]catalog.Track, error) {
	var resp struct {
		Playlist struct {
			Entry []song `json:"entry"`
		} `json:"playlist"`
	}
	if err := c.get(ctx, "getPlaylist", url.Values{"id": {id}}, &resp); err != nil {
		return nil, err
	}
	return mapSongs(resp.Playlist.Entry), nil
}

// ListAlbums pages through the album list, newest first.
func (c *Client) ListAlbums(ctx context.Context, offset, size int) ([]catalog.Album, error) {
	var resp struct {
		AlbumList2 struct {
			Album []album `json:"album"`
		} `json:"albumList2"`
	}
	params := url.Values{
		"type":   {"newest"},
		"size":   {strconv.Itoa(size)},
		"offset": {strconv.Itoa(offset)},
	}
	if err := c.get(ctx, "getAlbumList2", params, &resp); err != nil {
		return nil, err
	}
	out := make([]catalog.Album, 0, len(resp.AlbumList2.Album))
	for _, a := range resp.AlbumList2.Album {
		out = append(out, a.toDomain())
	}
	return out, nil
}

// ListArtists returns all indexed artists.
func (c *Client) ListArtists(ctx context.Context) ([]catalog.Artist, error) {
	var resp struct {
		Artists struct {
			Index []struct {
				Artist []struct {
					ID         string `json:"id"`
					Name       string `json:"name"`
					AlbumCount int    `json:"albumCount"`
				} `json:"artist"`
			} `json:"index"`
		} `json:"artists"`
	}
	if err := c.get(ctx, "getArtists", nil, &resp); err != nil {
		return nil, err
	}
	var out []catalog.Artist
	for _, idx := range resp.Artists.Index {
		for _, a := range idx.Artist {
			out = append(out, catalog.Artist{ID: a.ID, Name: a.Name, AlbumCount: a.AlbumCount})
		}
	}
	return out, nil
}

// ArtistAlbums returns the albums of one artist.
func (c *Client) ArtistAlbums(ctx context.Context, artistID string) ([]catalog.Album, error) {
	var resp struct {
		Artist struct {
			Album []album `json:"album"`
		} `json:"artist"`
	}
	if err := c.get(ctx, "getArtist", url.Values{"id": {artistID}}, &resp); err != nil {
		return nil, err
	}
	out := make([]catalog.Album, 0, len(resp.Artist.Album))
	for _, a := range resp.Artist.Album {
		out = append(out, a.toDomain())
	}
	return out, nil
}

// ListPlaylists returns the user's playlists.
func (c *Client) ListPlaylists(ctx context.Context) ([]catalog.Playlist, error) {
	var resp struct {
		Playlists struct {
			Playlist []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"playlist"`
		} `json:"playlists"`
	}
	if err := c.get(ctx, "getPlaylists", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]catalog.Playlist, 0, len(resp.Playlists.Playlist))
	for _, p := range resp.Playlists.Playlist {
		out = append(out, catalog.Playlist{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

func (c *Client) StreamURL(trackID string, q catalog.Quality) string {
	params := c.authParams()
	params.Set("id", trackID)
	switch q {
	case catalog.QualityRaw, "":
		params.Set("format", "raw")
	case catalog.QualityMP3:
		params.Set("format", "mp3")
		params.Set("maxBitRate", "320")
	case catalog.QualityOpus:
		params.Set("format", "opus")
		params.Set("maxBitRate", "128")
	case catalog.QualityAAC:
		params.Set("format", "aac")
		params.Set("maxBitRate", "256")
	}
	return c.cfg.BaseURL + "/rest/stream?" + params.Encode()
}

func (c *Client) ArtworkURL(ref string, sizePx int) string {
	if ref == "" {
		return ""
	}
	params := c.authParams()
	params.Set("id", ref)
	if sizePx > 0 {
		params.Set("size", strconv.Itoa(sizePx))
	}
	return c.cfg.BaseURL + "/rest/getCoverArt?" + params.Encode()
}

func (c *Client) NowPlaying(ctx context.Context, trackID string) error {
	return c.scrobble(ctx, trackID, false)
}

func (c *Client) Scrobble(ctx context.Context, trackID string) error {
	return c.scrobble(ctx, trackID, true)
}

func (c *Client) scrobble(ctx context.Context, trackID string, submission bool) error {
	params := url.Values{
		"id":         {trackID},
		"submission": {strconv.FormatBool(submission)},
	}
	var resp struct{}
	return c.get(ctx, "scrobble", params, &resp)
}

func (c *Client) authParams() url.Values {
	return url.Values{
		"u": {c.cfg.Username},
		"t": {c.token},
		"s": {c.salt},
		"v": {apiVersion},
		"c": {clientName},
		"f": {"json"},
	}
}

type envelope struct {
	Response json.RawMessage `json:"subsonic-response"`
}

type header struct {
	Status string `json:"status"`
	Error  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u, err := url.Parse(c.cfg.BaseURL + "/rest/" + endpoint)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := c.authParams()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return mapHTTPError(err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return catalog.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return catalog.ErrNotFound
	case resp.StatusCode >= 500:
		return catalog.ErrTemporary
	case resp.StatusCode >= 400:
		return fmt.Errorf("subsonic: http status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	var hdr header
	if err := json.Unmarshal(env.Response, &hdr); err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	if hdr.Status != "ok" {
		// Subsonic error code 40 is wrong username/password.
		if hdr.Error.Code == 40 {
			return catalog.ErrUnauthorized
		}
		return fmt.Errorf("subsonic: %s (code %d)", hdr.Error.Message, hdr.Error.Code)
	}
	return json.Unmarshal(env.Response, out)
}

func mapHTTPError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return catalog.ErrTemporary
	}
	return err
}

type song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"` // seconds
	Track    int    `json:"track"`
	CoverArt string `json:"coverArt"`
}

type album struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Artist    string `json:"artist"`
	Year      int    `json:"year"`
	CoverArt  string `json:"coverArt"`
	SongCount int    `json:"songCount"`
}

func (a album) toDomain() catalog.Album {
	return catalog.Album{
		ID:         a.ID,
		Title:      a.Name,
		ArtistName: a.Artist,
		Year:       a.Year,
		ArtworkRef: a.CoverArt,
	}
}

func mapSongs(in []song) []catalog.Track {
	out := make([]catalog.Track, 0, len(in))
	for _, s := range in {
		out = append(out, catalog.Track{
			ID:         s.ID,
			Title:      s.Title,
			ArtistName: s.Artist,
			AlbumName:  s.Album,
			DurationMs: s.Duration * 1000,
			TrackNo:    s.Track,
			ArtworkRef: s.CoverArt,
		})
	}
	return out
}
