// Package render draws distributions and session analytics for the terminal.
package render

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/codexlabs/emotion-analyzer/emotion"
	"github.com/codexlabs/emotion-analyzer/history"
)

const (
	DefaultBarWidth = 40
	minBarWidth     = 10
	maxBarWidth     = 60

	// label column + percentage + padding
	chrome = 32
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// BarWidth sizes bars to the terminal behind f, or DefaultBarWidth when f is
// not a terminal.
func BarWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return DefaultBarWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return DefaultBarWidth
	}
	return clampWidth(w - chrome)
}

func clampWidth(w int) int {
	switch {
	case w < minBarWidth:
		return minBarWidth
	case w > maxBarWidth:
		return maxBarWidth
	}
	return w
}

func bar(conf float64, width int, color string) string {
	n := int(math.Round(conf * float64(width)))
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	fill := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("█", n))
	return fill + dimStyle.Render(strings.Repeat("░", width-n))
}

func labelCell(l emotion.Label, lang emotion.Language, width int) string {
	s := l.Style().Emoji + " " + lang.Translate(l)
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func labelColumn(lang emotion.Language) int {
	w := 0
	for _, l := range emotion.Labels {
		if n := lipgloss.Width(l.Style().Emoji + " " + lang.Translate(l)); n > w {
			w = n
		}
	}
	return w
}

// Distribution renders one bar per label in canonical order, labels
// translated into lang.
func Distribution(d emotion.Distribution, lang emotion.Language, width int) string {
	width = clampWidth(width)
	col := labelColumn(lang)
	var b strings.Builder
	for _, l := range emotion.Labels {
		c := d.Get(l)
		fmt.Fprintf(&b, "%s %s %5.1f%%\n", labelCell(l, lang, col), bar(c, width, l.Style().Color), c*100)
	}
	return b.String()
}

// Record renders a titled box with the record's dominant emotion and its chart.
func Record(r history.Record, lang emotion.Language, width int) string {
	dom := r.Dominant()
	head := titleStyle.Render(fmt.Sprintf("#%d %s", r.ID, r.SourceLabel))
	sub := fmt.Sprintf("%s %s (%.1f%%)", dom.Label.Style().Emoji, lang.Translate(dom.Label), dom.Confidence*100)
	lines := []string{head, lipgloss.NewStyle().Foreground(lipgloss.Color(dom.Label.Style().Color)).Bold(true).Render(sub)}
	if r.Prompt != "" {
		lines = append(lines, dimStyle.Render("prompt: "+r.Prompt))
	}
	if r.Intensity > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("intensity: %.1f", r.Intensity)))
	}
	lines = append(lines, "", strings.TrimRight(Distribution(r.Distribution, lang, width), "\n"))
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)) + "\n"
}

// Comparison renders the per-label change from record a to record b.
func Comparison(a, b uint64, deltas []history.Delta, lang emotion.Language) string {
	col := labelColumn(lang)
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d → #%d", a, b)) + "\n")
	for _, d := range deltas {
		v := fmt.Sprintf("%+6.1f%%", d.Change*100)
		switch {
		case d.Change > 0.0005:
			v = upStyle.Render(v)
		case d.Change < -0.0005:
			v = downStyle.Render(v)
		default:
			v = dimStyle.Render(v)
		}
		fmt.Fprintf(&sb, "%s %s\n", labelCell(d.Label, lang, col), v)
	}
	return sb.String()
}

// Stats renders the session summary: totals, per-label counts and feedback.
func Stats(st history.Stats, lang emotion.Language, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session summary") + "\n")
	if st.Total == 0 {
		b.WriteString(dimStyle.Render("no analyses yet") + "\n")
		return b.String()
	}
	fmt.Fprintf(&b, "analyses:        %d\n", st.Total)
	fmt.Fprintf(&b, "avg confidence:  %.1f%%\n", st.AvgConfidence*100)
	fmt.Fprintf(&b, "most common:     %s %s\n", st.MostCommon.Style().Emoji, lang.Translate(st.MostCommon))

	width = clampWidth(width)
	col := labelColumn(lang)
	b.WriteString("\n")
	for _, l := range emotion.Labels {
		n := st.Counts[l]
		share := float64(n) / float64(st.Total)
		fmt.Fprintf(&b, "%s %s %3d\n", labelCell(l, lang, col), bar(share, width, l.Style().Color), n)
	}

	if len(st.Trend) > 1 {
		b.WriteString("\n" + dimStyle.Render("trend: "))
		parts := make([]string, 0, len(st.Trend))
		for _, p := range st.Trend {
			parts = append(parts, p.Dominant.Style().Emoji)
		}
		b.WriteString(strings.Join(parts, " ") + "\n")
	}

	if fb := st.Feedback; fb.Total > 0 {
		fmt.Fprintf(&b, "\nfeedback:        %d (accuracy %.0f%%, helpfulness %.1f/5)\n",
			fb.Total, fb.Accuracy*100, fb.AvgHelpfulness)
	}
	return b.String()
}

// Languages renders the supported language table.
func Languages() string {
	var b strings.Builder
	for _, l := range emotion.Languages {
		fmt.Fprintf(&b, "%-3s %s\n", l, l.Name())
	}
	return b.String()
}
