package app

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clickwheel/clickwheel/internal/catalog"
	"github.com/clickwheel/clickwheel/internal/scroll"
	"github.com/clickwheel/clickwheel/internal/settings"
)

// isStatic reports whether a view is built from in-process data and can
// be pushed without a load round-trip.
func isStatic(viewID string) bool {
	switch viewID {
	case "main", "music", "settings", "settings:quality", "settings:fadein", "settings:fadeout":
		return true
	}
	return false
}

func (m *Model) staticItems(viewID string) []scroll.Item {
	switch viewID {
	case "main":
		return []scroll.Item{
			scroll.ViewItem{Name: "Music", ViewID: "music"},
			scroll.ViewItem{Name: "Now Playing", ViewID: "nowplaying"},
			scroll.ViewItem{Name: "Settings", ViewID: "settings"},
			scroll.PopupItem{Name: "About", PopupID: "about"},
		}
	case "music":
		return []scroll.Item{
			scroll.ViewItem{Name: "Artists", ViewID: "artists"},
			scroll.ViewItem{Name: "Albums", ViewID: "albums"},
			scroll.ViewItem{Name: "Playlists", ViewID: "playlists"},
		}
	case "settings":
		return []scroll.Item{
			scroll.ViewItem{Name: "Quality", ViewID: "settings:quality"},
			scroll.ViewItem{Name: "Fade In", ViewID: "settings:fadein"},
			scroll.ViewItem{Name: "Fade Out", ViewID: "settings:fadeout"},
			scroll.ActionItem{Name: "Loop Track", Run: func() {
				m.eng.ToggleLoop(context.Background())
			}},
			scroll.ActionItem{Name: "Loop Queue", Run: func() {
				m.eng.ToggleQueueLoop(context.Background())
			}},
			scroll.ActionItem{Name: "Clear Queue", Run: func() {
				m.eng.ClearQueue()
				m.status = "Queue cleared"
			}},
		}
	case "settings:quality":
		qualities := []catalog.Quality{
			catalog.QualityRaw, catalog.QualityMP3, catalog.QualityOpus, catalog.QualityAAC,
		}
		items := make([]scroll.Item, 0, len(qualities))
		for _, q := range qualities {
			q := q
			items = append(items, scroll.ActionItem{Name: string(q), Run: func() {
				m.eng.SetQuality(context.Background(), q)
				m.status = "Quality: " + string(q)
			}})
		}
		return items
	case "settings:fadein", "settings:fadeout":
		fadeIn := viewID == "settings:fadein"
		durations := settings.FadeDurations()
		items := make([]scroll.Item, 0, len(durations))
		for _, sec := range durations {
			sec := sec
			name := fmt.Sprintf("%d seconds", sec)
			if sec == 0 {
				name = "Off"
			}
			items = append(items, scroll.ActionItem{Name: name, Run: func() {
				var err error
				if fadeIn {
					err = m.eng.SetFadeIn(context.Background(), sec)
				} else {
					err = m.eng.SetFadeOut(context.Background(), sec)
				}
				if err != nil {
					m.errText = err.Error()
				}
			}})
		}
		return items
	}
	return nil
}

// loadViewCmd fetches a catalog-backed menu level off the Update loop.
func (m *Model) loadViewCmd(viewID, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.cfg.DeadlineContext()
		defer cancel()
		items, err := m.fetchItems(ctx, viewID)
		return itemsMsg{viewID: viewID, title: title, items: items, err: err}
	}
}

func (m *Model) fetchItems(ctx context.Context, viewID string) ([]scroll.Item, error) {
	switch {
	case viewID == "artists":
		artists, err := m.cat.ListArtists(ctx)
		if err != nil {
			return nil, fmt.Errorf("list artists: %w", err)
		}
		items := make([]scroll.Item, 0, len(artists))
		for _, a := range artists {
			items = append(items, scroll.ViewItem{Name: a.Name, ViewID: "artist:" + a.ID})
		}
		return items, nil

	case viewID == "albums":
		albums, err := m.cat.ListAlbums(ctx, 0, m.cfg.UI.PageSize)
		if err != nil {
			return nil, fmt.Errorf("list albums: %w", err)
		}
		return albumItems(albums), nil

	case strings.HasPrefix(viewID, "artist:"):
		albums, err := m.cat.ArtistAlbums(ctx, strings.TrimPrefix(viewID, "artist:"))
		if err != nil {
			return nil, fmt.Errorf("artist albums: %w", err)
		}
		return albumItems(albums), nil

	case viewID == "playlists":
		playlists, err := m.cat.ListPlaylists(ctx)
		if err != nil {
			return nil, fmt.Errorf("list playlists: %w", err)
		}
		items := make([]scroll.Item, 0, len(playlists))
		for _, p := range playlists {
			items = append(items, scroll.ViewItem{Name: p.Name, ViewID: "playlist:" + p.ID})
		}
		return items, nil

	case strings.HasPrefix(viewID, "album:"):
		id := strings.TrimPrefix(viewID, "album:")
		tracks, err := m.cat.Resolve(ctx, catalog.Selection{AlbumID: id})
		if err != nil {
			return nil, fmt.Errorf("album tracks: %w", err)
		}
		return trackItems(tracks), nil

	case strings.HasPrefix(viewID, "playlist:"):
		id := strings.TrimPrefix(viewID, "playlist:")
		tracks, err := m.cat.Resolve(ctx, catalog.Selection{PlaylistID: id})
		if err != nil {
			return nil, fmt.Errorf("playlist tracks: %w", err)
		}
		return trackItems(tracks), nil
	}
	return nil, fmt.Errorf("unknown view %s", viewID)
}

func albumItems(albums []catalog.Album) []scroll.Item {
	items := make([]scroll.Item, 0, len(albums))
	for _, a := range albums {
		items = append(items, scroll.ViewItem{Name: a.Title, ViewID: "album:" + a.ID})
	}
	return items
}

// trackItems builds playable rows. Each row carries the whole song list
// and its position so confirming a song plays the list from there.
func trackItems(tracks []catalog.Track) []scroll.Item {
	items := make([]scroll.Item, 0, len(tracks))
	for i, t := range tracks {
		items = append(items, scroll.TrackItem{
			Name:     t.Title,
			Song:     t,
			Songs:    tracks,
			Position: i,
		})
	}
	return items
}

// dispatcher routes confirmed menu items back into the model. Commands
// produced while dispatching are collected and batched by the caller.
type dispatcher struct {
	m    *Model
	cmds []tea.Cmd
}

func (d *dispatcher) PlayTrack(item scroll.TrackItem) {
	m := d.m
	sel := catalog.Selection{}
	if len(item.Songs) > 0 {
		sel.Songs = item.Songs
		sel.StartPosition = item.Position
	} else {
		song := item.Song
		sel.Song = &song
	}
	d.cmds = append(d.cmds, func() tea.Msg {
		ctx, cancel := m.cfg.DeadlineContext()
		defer cancel()
		if err := m.eng.Play(ctx, sel); err != nil {
			return errorMsg{err}
		}
		return nil
	})
	m.screen = screenNowPlaying
}

func (d *dispatcher) OpenView(item scroll.ViewItem) {
	m := d.m
	switch {
	case item.ViewID == "nowplaying":
		m.screen = screenNowPlaying
	case isStatic(item.ViewID):
		m.stack = append(m.stack, m.newScreen(item.Name, item.ViewID, m.staticItems(item.ViewID)))
		m.preview = ""
	default:
		m.loading = true
		d.cmds = append(d.cmds, m.loadViewCmd(item.ViewID, item.Name))
	}
}

func (d *dispatcher) OpenLink(item scroll.LinkItem) {
	d.m.status = "Link: " + item.URL
}

func (d *dispatcher) RunAction(item scroll.ActionItem) {
	if item.Run != nil {
		item.Run()
	}
	// action sheets close themselves after running
	if d.m.top().viewID == "sheet:track" {
		d.m.back()
	}
}

func (d *dispatcher) OpenActionSheet(item scroll.ActionSheetItem) {
	d.m.log.Debug("no action sheet registered", "sheet", item.SheetID)
}

func (d *dispatcher) OpenPopup(item scroll.PopupItem) {
	switch item.PopupID {
	case "about":
		d.m.popup = "Clickwheel\n\nA wheel-driven music player\nfor the terminal."
	default:
		d.m.log.Debug("no popup registered", "popup", item.PopupID)
	}
}

// Context handles a long-press. Tracks get a queueing sheet; other item
// kinds have no context menu.
func (d *dispatcher) Context(item scroll.Item) {
	t, ok := item.(scroll.TrackItem)
	if !ok {
		return
	}
	m := d.m
	items := []scroll.Item{
		scroll.ActionItem{Name: "Play Next", Run: func() { m.queueTrack(t, true) }},
		scroll.ActionItem{Name: "Add to Queue", Run: func() { m.queueTrack(t, false) }},
	}
	m.stack = append(m.stack, m.newScreen(t.Name, "sheet:track", items))
	m.preview = ""
}

func (m *Model) queueTrack(item scroll.TrackItem, next bool) {
	ctx, cancel := m.cfg.DeadlineContext()
	defer cancel()
	song := item.Song
	sel := catalog.Selection{Song: &song}
	var err error
	if next {
		err = m.eng.PlayNext(ctx, sel)
	} else {
		err = m.eng.AddToQueue(ctx, sel)
	}
	if err != nil {
		m.errText = err.Error()
		return
	}
	m.status = "Queued: " + item.Name
}
