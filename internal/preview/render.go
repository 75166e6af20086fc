package preview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// StyledLine is one parsed line of pane content: the original
// ANSI-encoded text (for rendering with color preserved) and its
// plain-text form (for width/wrap math).
type StyledLine struct {
	Raw   string
	Plain string
}

// ParseANSI splits raw pane bytes into styled lines. Parsing never
// panics: any line ansi.Strip chokes on is retained as a best-effort
// plain line instead (spec.md §4.4's fallback contract).
func ParseANSI(raw string) []StyledLine {
	rawLines := strings.Split(raw, "\n")
	out := make([]StyledLine, len(rawLines))
	for i, l := range rawLines {
		out[i] = StyledLine{Raw: l, Plain: safeStrip(l)}
	}
	return out
}

func safeStrip(l string) (plain string) {
	defer func() {
		if r := recover(); r != nil {
			plain = l
		}
	}()
	return ansi.Strip(l)
}

// Geometry is the preview panel's computed pane target size, derived
// from the render area per spec.md §4.4's PTY-width-synchronization
// contract.
type Geometry struct {
	PreviewWidth  int
	PreviewHeight int
}

// ComputeGeometry derives the target pane size from the panel's
// render dimensions: inner_width/height subtract the lipgloss border,
// and preview_width further subtracts a one-column safety margin
// against edge-wrap.
func ComputeGeometry(panelRenderWidth, panelRenderHeight int) Geometry {
	innerWidth := panelRenderWidth - 2
	innerHeight := panelRenderHeight - 2
	previewWidth := innerWidth - 1
	if previewWidth < 0 {
		previewWidth = 0
	}
	if innerHeight < 0 {
		innerHeight = 0
	}
	return Geometry{PreviewWidth: previewWidth, PreviewHeight: innerHeight}
}

// RenderLines renders the viewport's visible slice of lines, each set to
// the given width with lipgloss; it draws no border. A line wider than
// width is truncated as plain text, dropping its ANSI styling.
// scrollOffset and height select which raw lines show.
func RenderLines(lines []StyledLine, scrollOffset, height, width int) string {
	style := lipgloss.NewStyle().Width(width).MaxWidth(width)

	visible := visibleSlice(lines, scrollOffset, height)
	rendered := make([]string, len(visible))
	for i, l := range visible {
		rendered[i] = style.Render(truncateToWidth(l.Raw, width))
	}
	return strings.Join(rendered, "\n")
}

func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(ansi.Strip(s)) <= width {
		return s
	}
	return runewidth.Truncate(ansi.Strip(s), width, "")
}

func visibleSlice(lines []StyledLine, offset, height int) []StyledLine {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(lines) {
		return nil
	}
	end := offset + height
	if end > len(lines) {
		end = len(lines)
	}
	return lines[offset:end]
}
