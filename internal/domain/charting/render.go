package charting

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"
)

const (
	tooltipFormat = "{b} - Rank: {c}"
	gapValue      = "-"
	defaultWidth  = "900px"
	defaultHeight = "500px"
)

// markupStripper keeps caller-supplied text from closing the inline script.
var markupStripper = strings.NewReplacer("<", "", ">", "") //nolint:gochecknoglobals // immutable replacer

// Renderer turns a Series into a self-contained HTML fragment: a container
// element and the script that draws an interactive line+marker chart into it.
type Renderer struct {
	assetsURL string
	width     string
	height    string
	newID     func() string
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithAssetsURL sets the charting script the fragment loads. Empty omits the tag.
func WithAssetsURL(url string) RendererOption {
	return func(r *Renderer) { r.assetsURL = url }
}

// WithSize sets the CSS width and height of the chart container.
func WithSize(width, height string) RendererOption {
	return func(r *Renderer) {
		if width != "" {
			r.width = width
		}
		if height != "" {
			r.height = height
		}
	}
}

// WithIDGenerator overrides how chart element ids are produced.
func WithIDGenerator(fn func() string) RendererOption {
	return func(r *Renderer) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRenderer builds a Renderer. Element ids default to random uuids.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		width:  defaultWidth,
		height: defaultHeight,
		newID:  newChartID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newChartID yields an id that is also a valid JavaScript identifier suffix.
func newChartID() string {
	return "asin" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Render draws s. Points without a rank become gaps in the line.
func (r *Renderer) Render(s Series) (string, error) {
	if len(s.Points) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptySeries, s.Slot)
	}

	days := make([]string, len(s.Points))
	lineData := make([]opts.LineData, len(s.Points))
	markerData := make([]opts.ScatterData, len(s.Points))
	for i, p := range s.Points {
		days[i] = p.Day
		var v any = gapValue
		if p.Rank != nil {
			v = *p.Rank
		}
		lineData[i] = opts.LineData{Value: v}
		markerData[i] = opts.ScatterData{Value: v, SymbolSize: 8}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: r.newID(),
			Width:   r.width,
			Height:  r.height,
		}),
		charts.WithTitleOpts(opts.Title{Title: markupStripper.Replace(s.Title), Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item", Formatter: tooltipFormat}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value"}),
	)
	line.SetXAxis(days).AddSeries(s.Slot.String(), lineData)

	markers := charts.NewScatter()
	markers.SetXAxis(days).AddSeries(s.Slot.String(), markerData)
	line.Overlap(markers)

	snippet := line.RenderSnippet()
	if snippet.Element == "" || snippet.Script == "" {
		return "", fmt.Errorf("%w: %s", ErrRender, s.Slot)
	}

	var b strings.Builder
	if r.assetsURL != "" {
		fmt.Fprintf(&b, "<script src=\"%s\"></script>\n", template.HTMLEscapeString(r.assetsURL))
	}
	b.WriteString(snippet.Element)
	b.WriteString("\n")
	b.WriteString(snippet.Script)
	return b.String(), nil
}
