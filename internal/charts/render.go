package charts

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Renderer draws a chart.
type Renderer interface {
	Render(w io.Writer, c *Chart) error
}

// TextRenderer draws charts as horizontal ASCII bars scaled so the largest
// value spans Width characters.
type TextRenderer struct {
	Width int
}

// NewTextRenderer creates a text renderer; widths below 10 become 40.
func NewTextRenderer(width int) *TextRenderer {
	if width < 10 {
		width = 40
	}
	return &TextRenderer{Width: width}
}

// shades maps heatmap intensity, light to dark.
const shades = " .:-=+*#%@"

// Render implements Renderer
func (r *TextRenderer) Render(w io.Writer, c *Chart) error {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", c.Title)

	switch c.Kind {
	case Heatmap:
		r.heatmap(&b, c)
	default:
		r.bars(&b, c)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *TextRenderer) bars(b *strings.Builder, c *Chart) {
	peak := 0.0
	for _, s := range c.Series {
		for _, v := range s.Values {
			peak = math.Max(peak, v)
		}
	}

	labelWidth := 0
	for _, cat := range c.Categories {
		labelWidth = max(labelWidth, len(cat))
	}
	seriesWidth := 0
	if len(c.Series) > 1 {
		for _, s := range c.Series {
			seriesWidth = max(seriesWidth, len(s.Name))
		}
	}

	for i, cat := range c.Categories {
		for j, s := range c.Series {
			label := cat
			if j > 0 {
				label = ""
			}
			fmt.Fprintf(b, "%-*s ", labelWidth, label)
			if seriesWidth > 0 {
				fmt.Fprintf(b, "%-*s ", seriesWidth, s.Name)
			}
			v := 0.0
			if i < len(s.Values) {
				v = s.Values[i]
			}
			fmt.Fprintf(b, "|%s %s\n", strings.Repeat("#", r.barLength(v, peak)), formatValue(v))
		}
	}
}

func (r *TextRenderer) heatmap(b *strings.Builder, c *Chart) {
	peak := 0.0
	labelWidth := len(c.XLabel)
	for _, s := range c.Series {
		labelWidth = max(labelWidth, len(s.Name))
		for _, v := range s.Values {
			peak = math.Max(peak, v)
		}
	}
	cell := 4
	for _, cat := range c.Categories {
		cell = max(cell, len(cat))
	}
	for _, s := range c.Series {
		for _, v := range s.Values {
			cell = max(cell, len(formatValue(v))+2)
		}
	}

	fmt.Fprintf(b, "%-*s", labelWidth, c.XLabel)
	for _, cat := range c.Categories {
		fmt.Fprintf(b, " %*s", cell, cat)
	}
	b.WriteString("\n")
	for _, s := range c.Series {
		fmt.Fprintf(b, "%-*s", labelWidth, s.Name)
		for _, v := range s.Values {
			shade := shades[0]
			if peak > 0 {
				shade = shades[int(math.Round(v/peak*float64(len(shades)-1)))]
			}
			fmt.Fprintf(b, " %*s", cell, string(shade)+" "+formatValue(v))
		}
		b.WriteString("\n")
	}
}

func (r *TextRenderer) barLength(v, peak float64) int {
	if peak <= 0 || v <= 0 {
		return 0
	}
	return int(math.Round(v / peak * float64(r.Width)))
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.3f", v)
}
