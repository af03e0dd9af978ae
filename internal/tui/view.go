package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/glabrego/reddterm/internal/content"
	"github.com/glabrego/reddterm/internal/reddit"
	"github.com/glabrego/reddterm/internal/render/body"
)

type glyphs struct {
	up         string
	down       string
	bullet     string
	foldOpen   string
	foldClosed string
}

var (
	unicodeGlyphs = glyphs{up: "▲", down: "▼", bullet: "•", foldOpen: "▾", foldClosed: "▸"}
	asciiGlyphs   = glyphs{up: "^", down: "v", bullet: "*", foldOpen: "-", foldClosed: "+"}
)

func (m Model) glyphs() glyphs {
	if m.unicode {
		return unicodeGlyphs
	}
	return asciiGlyphs
}

func (m Model) View() string {
	var b strings.Builder

	if m.showHelp {
		b.WriteString(m.helpView())
		b.WriteString("\n")
		b.WriteString(m.footer())
		b.WriteString("\n")
		return b.String()
	}

	if m.phase == phaseAwaitingAuth {
		b.WriteString("Waiting for authorization...\n\n")
		if m.authURL != "" {
			b.WriteString("Visit this URL to grant access:\n\n  ")
			b.WriteString(m.authURL)
			b.WriteString("\n\n")
		}
		b.WriteString("esc: cancel\n\n")
		b.WriteString(m.footer())
		b.WriteString("\n")
		return b.String()
	}

	title := "reddterm"
	if m.store != nil {
		title = m.store.Title()
	}
	b.WriteString(title)
	b.WriteString("\n")

	switch {
	case m.phase == phaseLoading:
		b.WriteString("\nLoading...\n")
	case len(m.rows) == 0:
		b.WriteString("\nNothing here.\n")
	default:
		b.WriteString(m.rowsView())
	}

	b.WriteString("\n")
	if m.prompt != promptNone {
		b.WriteString(m.promptLabel)
		b.WriteString(": ")
		b.WriteString(string(m.promptText))
		b.WriteString("_\n")
	}
	b.WriteString(m.footer())
	b.WriteString("\n")
	return b.String()
}

// rowsView fills the viewport line by line. Rows are not all one line
// tall, so the window is cut on the rendered-line budget rather than a row
// count; the last visible row may be truncated mid-body.
func (m Model) rowsView() string {
	budget := m.viewHeight()
	var lines []string
	for i := m.offset; i < len(m.rows) && len(lines) < budget; i++ {
		for _, line := range m.rowLines(i) {
			if len(lines) == budget {
				break
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// rowLines renders one row and splits it into terminal lines.
func (m Model) rowLines(i int) []string {
	rendered := m.renderRow(m.rows[i], i == m.sel)
	return strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")
}

func (m Model) renderRow(row content.Row, selected bool) string {
	switch row.Kind {
	case content.KindSubmission:
		if m.inComments() {
			return m.renderSubmissionHeader(row.Submission, selected)
		}
		return m.renderListingLine(row, selected)
	case content.KindComment:
		return m.renderCommentRow(row, selected)
	case content.KindMore:
		return m.renderMoreRow(row, selected)
	case content.KindMarker:
		return m.renderMarkerRow(row, selected)
	}
	return ""
}

func (m Model) renderListingLine(row content.Row, selected bool) string {
	g := m.glyphs()
	sub := row.Submission
	line := fmt.Sprintf("%s%4d  %s  (r/%s %s %s %s %d comments)",
		g.up, sub.Score, sub.Title, sub.Subreddit, g.bullet, sub.Author, g.bullet, sub.NumComments)
	if m.visited[sub.ID] && !selected {
		line = dim(line)
	}
	return activeLine(selected, line) + "\n"
}

func (m Model) renderSubmissionHeader(sub reddit.Submission, selected bool) string {
	g := m.glyphs()
	var b strings.Builder
	b.WriteString(activeLine(selected, fmt.Sprintf("%s %s", g.up, sub.Title)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d points %s %s %s %s\n",
		sub.Score, g.bullet, sub.Author, g.bullet, timeAgo(sub.CreatedAt)))
	if sub.SelftextHTML != "" {
		for _, line := range body.Lines(sub.SelftextHTML, m.contentWidth()) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderCommentRow(row content.Row, selected bool) string {
	g := m.glyphs()
	indent := strings.Repeat("  ", row.Depth)
	c := row.Comment

	fold := g.foldOpen
	if row.Folded {
		fold = g.foldClosed
	}
	header := fmt.Sprintf("%s%s %s %s %d%s %s %s",
		indent, fold, c.Author, g.bullet, c.Score, g.up, g.bullet, timeAgo(c.CreatedAt))
	if row.Folded {
		header += fmt.Sprintf("  [%d hidden]", row.HiddenCount)
	}

	var b strings.Builder
	b.WriteString(activeLine(selected, header))
	b.WriteString("\n")
	if !row.Folded {
		width := m.contentWidth() - len(indent)
		for _, line := range body.Lines(c.BodyHTML, width) {
			b.WriteString(indent)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderMoreRow(row content.Row, selected bool) string {
	indent := strings.Repeat("  ", row.Depth)
	var line string
	switch row.State {
	case content.Loading:
		line = indent + "loading more comments..."
	case content.Failed:
		line = indent + "load failed: " + row.Failure + " (enter retries)"
	default:
		line = fmt.Sprintf("%s%s %d more comments", indent, m.glyphs().foldClosed, row.MoreCount)
	}
	return activeLine(selected, line) + "\n"
}

func (m Model) renderMarkerRow(row content.Row, selected bool) string {
	var line string
	switch row.State {
	case content.Loading:
		line = "loading next page..."
	case content.Failed:
		line = "load failed: " + row.Failure + " (enter retries)"
	default:
		line = "-- more --"
	}
	return activeLine(selected, line) + "\n"
}

func (m Model) footer() string {
	if m.confirmQuit {
		return "Really quit? (y/n)"
	}
	session := "anonymous"
	if m.sessionActive() {
		session = "logged in"
	}
	state := "browsing"
	switch m.phase {
	case phaseLoading:
		state = "loading"
	case phaseError:
		state = "error"
	case phaseAwaitingAuth:
		state = "authorizing"
	}
	status := "-"
	if m.status != "" {
		status = m.status
	}
	return fmt.Sprintf("%s | %s | %s | ?: help", session, state, status)
}

func (m Model) helpView() string {
	lines := []string{
		"Navigation:",
		"  j/k or arrows move, g/G jump top/bottom, pgup/pgdown jump page",
		"  enter opens a submission's comments, esc/backspace goes back",
		"  enter folds/unfolds a comment, h folds the parent thread",
		"  moving onto the page tail loads the next page",
		"  / prompts for a subreddit, F jumps to the front page",
		"Actions:",
		"  a upvote, z downvote, r reply, e edit, d delete, o open in browser",
		"  f refresh page",
		"Account:",
		"  u log in (or switch accounts), U forget stored login",
		"Other:",
		"  q or ctrl+c quit (asks first), any key closes this help",
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) contentWidth() int {
	if m.width > 1 {
		return m.width - 1
	}
	return 80
}

func activeLine(active bool, line string) string {
	if !active {
		return line
	}
	return "\x1b[7m" + line + "\x1b[0m"
}

func dim(line string) string {
	return "\x1b[90m" + line + "\x1b[0m"
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "some time ago"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
	return fmt.Sprintf("%dy", int(d.Hours()/(24*365)))
}
