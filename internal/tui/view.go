package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/ridealong/internal/crosssection"
	"github.com/banshee-data/ridealong/internal/deviation"
	"github.com/banshee-data/ridealong/internal/monitor"
	"github.com/banshee-data/ridealong/internal/session"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	contentWidth := max(40, m.width)
	mainWidth := max(20, contentWidth-sidebarWidth-1)

	header := titleStyle.Render(" ridealong ─ follow a curve ")
	header = lipgloss.NewStyle().Width(contentWidth).Render(header)

	sidebar := lipgloss.NewStyle().Width(sidebarWidth).Render(m.l.View())

	v := m.sess.View()
	panels := []string{
		boxStyle.Width(mainWidth - 4).Render(renderNavigation(v)),
		boxStyle.Width(mainWidth - 4).Render(renderDistribution(v, m.sess, mainWidth-8)),
		boxStyle.Width(mainWidth - 4).Render(renderCrossSection(v.CrossSection)),
	}
	main := lipgloss.JoinVertical(lipgloss.Left, panels...)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)

	footer := dimStyle.Render(m.status)
	if m.err != "" {
		footer = errStyle.Render(m.err)
	}
	if m.mode != inputNone {
		footer = m.input.View()
	}
	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, footer, m.help.View(m.keys)))
}

func renderNavigation(v session.View) string {
	nav := v.Navigation
	if !nav.Active {
		return dimStyle.Render("not following")
	}
	view := "3D"
	if nav.View2D {
		view = "2D"
	}
	lines := []string{
		titleStyle.Render(strings.Join(nav.ObjectIDs, " + ")),
		fmt.Sprintf("profile %.2f  [%.2f, %.2f]", nav.Profile, nav.Bounds.Start, nav.Bounds.End),
		fmt.Sprintf("step %.2f  clip %.2f  view %s  grid %v  track %v",
			nav.StepSize, nav.ClippingDistance, view, nav.ShowGrid, v.TrackCamera),
	}
	if nav.CurrentCenter != nil {
		c := nav.CurrentCenter
		lines = append(lines, dimStyle.Render(fmt.Sprintf("center (%.2f, %.2f, %.2f)", c.X, c.Y, c.Z)))
	}
	if v.Marker != nil && v.Marker.Visible {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("marker (%.0f, %.0f)", v.Marker.X, v.Marker.Y)))
	}
	return strings.Join(lines, "\n")
}

func renderDistribution(v session.View, sess *session.Session, width int) string {
	d := v.Distribution
	switch d.Status {
	case deviation.StatusIdle:
		return dimStyle.Render("no distribution")
	case deviation.StatusPending:
		return dimStyle.Render(fmt.Sprintf("loading [%.0f, %.0f]...", d.ParameterBounds.Start, d.ParameterBounds.End))
	case deviation.StatusFailed:
		return errStyle.Render("distribution failed: " + d.Error + " (r to retry)")
	}

	lines := []string{fmt.Sprintf("range [%.0f, %.0f]", d.ParameterBounds.Start, d.ParameterBounds.End)}
	if v.Brush != nil {
		lines = append(lines, renderBrush(*v.Brush, width))
	}
	stops := sess.ColorStops()
	h := sess.Histogram(0)
	barWidth := max(4, width-18)
	for _, b := range h.Bars {
		n := int(math.Round(b.Percent / 100 * float64(barWidth)))
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(monitor.NearestColor(stops, b.Deviation))).
			Render(strings.Repeat("█", n))
		lines = append(lines, fmt.Sprintf("%+7.3f %s %5.1f%%", b.Deviation, bar, b.Percent))
	}
	return strings.Join(lines, "\n")
}

// renderBrush draws the brush widget scaled to width cells.
func renderBrush(b session.BrushView, width int) string {
	if b.Width <= 0 || width <= 0 {
		return ""
	}
	scale := float64(width) / b.Width
	x0 := int(math.Floor(b.X0 * scale))
	x1 := int(math.Ceil(b.X1 * scale))
	x0 = min(max(0, x0), width)
	x1 = min(max(x0, x1), width)
	return dimStyle.Render(strings.Repeat("─", x0)) +
		titleStyle.Render(strings.Repeat("━", x1-x0)) +
		dimStyle.Render(strings.Repeat("─", width-x1))
}

func renderCrossSection(st *crosssection.State) string {
	if st == nil {
		return dimStyle.Render("no cross-section")
	}
	switch st.Status {
	case crosssection.StatusPending:
		return dimStyle.Render("cross-section loading...")
	case crosssection.StatusFailed:
		if st.Failure == crosssection.FailureNotFound {
			return dimStyle.Render("no cross-section at this profile")
		}
		return errStyle.Render("cross-section failed: " + st.Error)
	case crosssection.StatusReady:
		lines := make([]string, 0, len(st.Sections))
		for _, s := range st.Sections {
			lines = append(lines, fmt.Sprintf("%s: %d points", s.RoadID, len(s.Points)))
		}
		if len(lines) == 0 {
			return dimStyle.Render("cross-section empty")
		}
		return strings.Join(lines, "\n")
	}
	return dimStyle.Render("no cross-section")
}
