package viz

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/gitrdm/goddo/pkg/ddo/mdd"
)

// RenderOptions controls raster/SVG snapshot export, the same "format
// inferred from path, fall back to a safe default" shape as
// vanderheijden86-beadwork/pkg/export's GraphSnapshotOptions.
type RenderOptions struct {
	Path   string // output path; format inferred from extension when Format is empty
	Format string // "svg" or "png"; inferred from Path when empty
	Title  string
	Viz    Options
}

const (
	nodeW   = 170.0
	nodeH   = 90.0
	colGap  = 70.0
	rowGap  = 30.0
	padding = 36.0
	header  = 60.0
)

var (
	colorExact    = color.RGBA{0x99, 0xcc, 0xff, 0xff}
	colorRelaxed  = color.RGBA{0xff, 0xf3, 0x8f, 0xff}
	colorRestrict = color.RGBA{0xd9, 0xd9, 0xd9, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorBestEdge = color.RGBA{0xcc, 0x33, 0x33, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x55, 0x55, 0x55, 0xff}
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

type laidOutNode struct {
	mdd.ExportNode
	X, Y float64
}

type layout struct {
	nodes  []laidOutNode
	byID   map[int]laidOutNode
	width  int
	height int
}

// Render writes a raster (PNG) or vector (SVG) snapshot of g to
// opts.Path, laying nodes out by compiled layer left-to-right — the same
// "level then rank within level" placement graph_snapshot.go's buildLayout
// uses for issue graphs, with layer index standing in for dependency level.
func Render(g mdd.ExportGraph, opts RenderOptions) error {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("viz: unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("viz: output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("viz: create parent dir: %w", err)
	}

	lay := buildLayout(g, opts.Viz)

	if format == "png" {
		return renderPNG(g, opts, lay)
	}
	return renderSVG(g, opts, lay)
}

func buildLayout(g mdd.ExportGraph, opts Options) layout {
	byID := make(map[int]laidOutNode, len(g.Nodes))
	var nodes []laidOutNode

	maxRows := 0
	for li, l := range g.Layers {
		row := 0
		for i := l.Start; i < l.End; i++ {
			n := g.Nodes[i]
			if !opts.ShowDeleted && n.IsDeleted {
				continue
			}
			ln := laidOutNode{
				ExportNode: n,
				X:          padding + float64(li)*(nodeW+colGap),
				Y:          padding + header + float64(row)*(nodeH+rowGap),
			}
			nodes = append(nodes, ln)
			byID[n.ID] = ln
			row++
		}
		if row > maxRows {
			maxRows = row
		}
	}

	width := int(padding*2 + float64(len(g.Layers))*(nodeW+colGap) + nodeW)
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + header + float64(maxRows)*(nodeH+rowGap) + nodeH)
	if height < 480 {
		height = 480
	}

	return layout{nodes: nodes, byID: byID, width: width, height: height}
}

func nodeFill(n mdd.ExportNode) color.RGBA {
	switch {
	case n.IsExact:
		return colorExact
	case n.IsRelaxed:
		return colorRelaxed
	default:
		return colorRestrict
	}
}

func nodeLabel(n mdd.ExportNode) string {
	return fmt.Sprintf("%v", n.State)
}

func renderPNG(g mdd.ExportGraph, opts RenderOptions, lay layout) error {
	dc := gg.NewContext(lay.width, lay.height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(lay.width)-32, header-20, 8)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	title := opts.Title
	if title == "" {
		title = "Decision Diagram"
	}
	dc.DrawStringAnchored(fmt.Sprintf("%s — %d nodes, %d edges", title, len(g.Nodes), len(g.Edges)), 28, 38, 0, 0.5)

	dc.SetLineWidth(1.5)
	for _, e := range g.Edges {
		from, ok1 := lay.byID[e.From]
		to, ok2 := lay.byID[e.To]
		if !ok1 || !ok2 {
			continue
		}
		isBest := g.Nodes[e.To].BestEdge >= 0 && g.Edges[g.Nodes[e.To].BestEdge] == e
		if isBest {
			dc.SetColor(colorBestEdge)
			dc.SetLineWidth(3)
		} else {
			dc.SetColor(colorEdge)
			dc.SetLineWidth(1.5)
		}
		dc.DrawLine(from.X+nodeW, from.Y+nodeH/2, to.X, to.Y+nodeH/2)
		dc.Stroke()
	}

	for _, n := range lay.nodes {
		dc.SetColor(nodeFill(n.ExportNode))
		dc.DrawRoundedRectangle(n.X, n.Y, nodeW, nodeH, 8)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(n.X, n.Y, nodeW, nodeH, 8)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(nodeLabel(n.ExportNode), n.X+10, n.Y+18, 0, 0.5)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(fmt.Sprintf("val: %d", n.ValueTop), n.X+10, n.Y+36, 0, 0.5)
		dc.DrawStringAnchored(fmt.Sprintf("rub: %d", n.Rub), n.X+10, n.Y+54, 0, 0.5)
		dc.DrawStringAnchored(fmt.Sprintf("depth: %d", n.Depth), n.X+10, n.Y+72, 0, 0.5)
	}

	return dc.SavePNG(opts.Path)
}

func renderSVG(g mdd.ExportGraph, opts RenderOptions, lay layout) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()
	return renderSVGToWriter(file, g, opts, lay)
}

func renderSVGToWriter(w io.Writer, g mdd.ExportGraph, opts RenderOptions, lay layout) error {
	canvas := svg.New(w)
	canvas.Start(lay.width, lay.height)
	canvas.Rect(0, 0, lay.width, lay.height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, lay.width-32, int(header-20), 8, 8, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	title := opts.Title
	if title == "" {
		title = "Decision Diagram"
	}
	canvas.Text(28, 38, fmt.Sprintf("%s — %d nodes, %d edges", title, len(g.Nodes), len(g.Edges)),
		fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;font-weight:bold", css(colorText)))

	for _, e := range g.Edges {
		from, ok1 := lay.byID[e.From]
		to, ok2 := lay.byID[e.To]
		if !ok1 || !ok2 {
			continue
		}
		isBest := g.Nodes[e.To].BestEdge >= 0 && g.Edges[g.Nodes[e.To].BestEdge] == e
		strokeW := 1.5
		col := colorEdge
		if isBest {
			strokeW = 3
			col = colorBestEdge
		}
		x1, y1 := int(from.X+nodeW), int(from.Y+nodeH/2)
		x2, y2 := int(to.X), int(to.Y+nodeH/2)
		canvas.Line(x1, y1, x2, y2, fmt.Sprintf("stroke:%s;stroke-width:%v", css(col), strokeW))
	}

	for _, n := range lay.nodes {
		x, y := int(n.X), int(n.Y)
		canvas.Roundrect(x, y, int(nodeW), int(nodeH), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(nodeFill(n.ExportNode)), css(colorStroke)))
		canvas.Text(x+10, y+22, nodeLabel(n.ExportNode), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+10, y+40, fmt.Sprintf("val: %d", n.ValueTop), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		canvas.Text(x+10, y+56, fmt.Sprintf("rub: %d", n.Rub), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
		canvas.Text(x+10, y+72, fmt.Sprintf("depth: %d", n.Depth), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
