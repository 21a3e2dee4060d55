package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/snooze/internal/state"
)

// Palette follows the dark theme used by the story listings.
const (
	colorAccent = "#87AFFF"
	colorMuted  = "#808080"
	colorFaint  = "#666666"
	colorStar   = "#FFD700"
)

type styles struct {
	title lipgloss.Style
	host  lipgloss.Style
	meta  lipgloss.Style
	id    lipgloss.Style
	star  lipgloss.Style
}

// newStyles binds the styles to w so color is only emitted for terminals.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		host:  r.NewStyle().Foreground(lipgloss.Color(colorAccent)),
		meta:  r.NewStyle().Foreground(lipgloss.Color(colorMuted)),
		id:    r.NewStyle().Foreground(lipgloss.Color(colorFaint)),
		star:  r.NewStyle().Foreground(lipgloss.Color(colorStar)),
	}
}

// storyLine renders one story. Logged-out users get no favorite marker.
func (s styles) storyLine(story state.Story, user *state.User) string {
	var b strings.Builder
	if user != nil {
		if user.IsFavorite(story) {
			b.WriteString(s.star.Render("★"))
		} else {
			b.WriteString("☆")
		}
		b.WriteByte(' ')
	}
	b.WriteString(s.title.Render(story.Title()))
	b.WriteString(" (" + s.host.Render(story.HostOr("unknown host")) + ")")
	b.WriteString("\n    ")
	b.WriteString(s.meta.Render(fmt.Sprintf("by %s, posted by %s", story.Author(), story.SubmittedBy())))
	b.WriteString(" ")
	b.WriteString(s.id.Render("[" + story.ID() + "]"))
	return b.String()
}

func (e *env) printStories(stories []state.Story, user *state.User, empty string) {
	if len(stories) == 0 {
		if empty != "" {
			fmt.Fprintln(e.out, empty)
		}
		return
	}
	for _, story := range stories {
		fmt.Fprintln(e.out, e.styles.storyLine(story, user))
	}
}
