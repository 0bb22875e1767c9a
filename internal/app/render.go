package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clickwheel/clickwheel/internal/engine"
	"github.com/clickwheel/clickwheel/internal/scroll"
)

func (m *Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	var body string
	if m.screen == screenNowPlaying {
		body = m.renderNowPlaying(width)
	} else {
		body = m.renderMenu(width)
	}

	if m.popup != "" {
		body += "\n" + m.renderPopup()
	}
	return body
}

func (m *Model) renderMenu(width int) string {
	var b strings.Builder
	scr := m.top()

	b.WriteString(m.theme.Title.Render(" " + scr.title + " "))
	if m.loading {
		b.WriteString(m.theme.Dim.Render("  loading..."))
	}
	b.WriteString("\n\n")

	items, first := scr.list.Window()
	state := scr.list.State()
	if len(items) == 0 {
		b.WriteString(m.theme.Dim.Render("  (empty)"))
		b.WriteString("\n")
	}
	for i, item := range items {
		idx := first + i
		label := item.Label()
		if _, ok := item.(scroll.ViewItem); ok {
			label += " ›"
		}
		line := " " + label + " "
		if idx == state.SelectedIndex {
			b.WriteString(m.theme.Highlight.Render(line))
		} else {
			b.WriteString(m.theme.Text.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.preview != "" {
		b.WriteString(m.theme.Dim.Render("▸ " + m.preview))
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusLine())
	b.WriteString(m.renderPlayerBar(width))
	return b.String()
}

func (m *Model) renderNowPlaying(width int) string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render(" Now Playing "))
	b.WriteString("\n\n")

	now := m.snap.Now
	if now == nil {
		b.WriteString(m.theme.Dim.Render("  Nothing playing"))
		b.WriteString("\n\n")
		b.WriteString(m.theme.Dim.Render("  Pick a song from Music"))
		b.WriteString("\n")
		b.WriteString(m.renderStatusLine())
		return b.String()
	}

	info := m.snap.Info
	b.WriteString("  " + m.theme.Text.Bold(true).Render(now.Title) + "\n")
	b.WriteString("  " + m.theme.Accent.Render(now.ArtistName) + "\n")
	b.WriteString("  " + m.theme.Dim.Render(now.AlbumName) + "\n\n")

	barWidth := clamp(width-10, 10, 60)
	filled := 0
	if info.DurationMs > 0 {
		filled = clamp(barWidth*info.CurrentTimeMs/info.DurationMs, 0, barWidth)
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)
	b.WriteString("  " + m.theme.Accent.Render(bar) + "\n")
	b.WriteString("  " + m.theme.Dim.Render(
		formatMs(info.CurrentTimeMs)+" / "+formatMs(info.DurationMs)) + "\n\n")

	b.WriteString("  " + m.theme.Text.Render(stateLabel(info)) + "\n")
	b.WriteString("  " + m.theme.Dim.Render(fmt.Sprintf("Vol %3.0f%%", m.snap.Settings.Volume*100)))
	if m.snap.Settings.LoopTrack {
		b.WriteString(m.theme.Dim.Render("  ⟲ track"))
	}
	if m.snap.Settings.LoopQueue {
		b.WriteString(m.theme.Dim.Render("  ⟳ queue"))
	}
	b.WriteString(m.theme.Dim.Render("  " + string(m.snap.Settings.Quality)))
	b.WriteString("\n")

	if n := len(m.snap.Queue); n > 0 {
		b.WriteString("  " + m.theme.Dim.Render(
			fmt.Sprintf("Track %d of %d", m.snap.QueueIndex+1, n)) + "\n")
	}

	b.WriteString(m.renderStatusLine())
	return b.String()
}

func (m *Model) renderStatusLine() string {
	switch {
	case m.errText != "":
		return "\n" + m.theme.Error.Render(" "+m.errText+" ") + "\n"
	case m.status != "":
		return "\n" + m.theme.Dim.Render(" "+m.status) + "\n"
	}
	return ""
}

// renderPlayerBar is the one-line playback summary under the menus.
func (m *Model) renderPlayerBar(width int) string {
	now := m.snap.Now
	if now == nil {
		return ""
	}
	info := m.snap.Info
	icon := "▶"
	if info.IsPaused {
		icon = "⏸"
	}
	if info.IsLoading {
		icon = "…"
	}
	line := fmt.Sprintf(" %s %s · %s  %s/%s", icon, now.Title, now.ArtistName,
		formatMs(info.CurrentTimeMs), formatMs(info.DurationMs))
	if len(line) > width && width > 1 {
		line = line[:width-1]
	}
	return "\n" + m.theme.Border.Render(strings.Repeat("─", clamp(width, 1, 80))) + "\n" +
		m.theme.Text.Render(line) + "\n"
}

func (m *Model) renderPopup() string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2).
		Render(m.popup)
	return box
}

func stateLabel(info engine.PlaybackInfo) string {
	switch {
	case info.IsLoading:
		return "… Loading"
	case info.IsPaused:
		return "⏸ Paused"
	case info.IsPlaying:
		return "▶ Playing"
	}
	return "■ Stopped"
}

func formatMs(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
