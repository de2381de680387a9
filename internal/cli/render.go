package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/driftrss/drift/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ECDC4"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	starStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

// renderMarkdown pretty-prints markdown for the terminal, falling back to the
// raw text when the renderer cannot be built.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

func printArticleLine(a *storage.Article) {
	marker := " "
	if !a.Read {
		marker = "●"
	}
	star := " "
	if a.Starred {
		star = starStyle.Render("★")
	}
	fmt.Printf("%s %s %s  %s  %s\n",
		marker, star,
		titleStyle.Render(a.Title),
		dimStyle.Render(a.PubDate.Format("2006-01-02")),
		idStyle.Render(a.ID),
	)
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
