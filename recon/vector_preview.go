package recon

import (
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// maxVectorPoints caps how many points a vector preview draws. Vector
// output with millions of point marks is unusable; a strided subsample
// keeps the footprint shape readable.
const maxVectorPoints = 5000

// VectorPreview renders the ground-plane footprint of the point cloud as
// vector graphics, with the bounding box and a scale bar.
type VectorPreview struct {
	Resolution  canvas.Resolution // PNG output resolution
	PointRadius float64           // point mark radius in world units; 0 = auto
}

// NewVectorPreview creates a vector preview with default settings.
func NewVectorPreview() *VectorPreview {
	return &VectorPreview{
		Resolution: canvas.DPI(300),
	}
}

// vectorRenderer is the subset both the svg and rasterizer renderers
// implement.
type vectorRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderSVG writes the footprint as an SVG to the provided writer.
func (vp *VectorPreview) RenderSVG(w io.Writer, s *Session) error {
	width, height, render := vp.prepare(s)

	svgRenderer := svg.New(w, width, height, nil)
	render(svgRenderer)
	return svgRenderer.Close()
}

// RenderPNG writes the footprint as a PNG to the provided writer.
func (vp *VectorPreview) RenderPNG(w io.Writer, s *Session) error {
	width, height, render := vp.prepare(s)

	rast := rasterizer.New(width, height, vp.Resolution, canvas.DefaultColorSpace)
	render(rast)
	return png.Encode(w, rast)
}

// prepare snapshots the session and returns the canvas size plus a closure
// that draws onto any renderer. The snapshot is taken once so SVG and PNG
// output of the same state are identical.
func (vp *VectorPreview) prepare(s *Session) (float64, float64, func(vectorRenderer)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	type mark struct {
		x, y float64
		c    color.RGBA
	}
	stride := 1
	if n := len(s.recon.PointOrder); n > maxVectorPoints {
		stride = n / maxVectorPoints
	}
	var marks []mark
	for i, id := range s.recon.PointOrder {
		pt := s.recon.Points3D[id]
		minX = math.Min(minX, pt.XYZ[0])
		maxX = math.Max(maxX, pt.XYZ[0])
		minY = math.Min(minY, pt.XYZ[1])
		maxY = math.Max(maxY, pt.XYZ[1])
		if i%stride == 0 {
			marks = append(marks, mark{
				x: pt.XYZ[0],
				y: pt.XYZ[1],
				c: color.RGBA{pt.RGB[0], pt.RGB[1], pt.RGB[2], 255},
			})
		}
	}

	if len(marks) == 0 {
		return 10, 10, func(r vectorRenderer) {
			bg := canvas.DefaultStyle
			bg.Fill = canvas.Paint{Color: canvas.White}
			r.RenderPath(canvas.Rectangle(10, 10), bg, canvas.Identity)
		}
	}

	span := math.Max(maxX-minX, maxY-minY)
	padding := span * 0.05
	width := (maxX - minX) + 2*padding
	height := (maxY - minY) + 2*padding

	radius := vp.PointRadius
	if radius <= 0 {
		radius = span / 400
	}

	return width, height, func(r vectorRenderer) {
		bg := canvas.DefaultStyle
		bg.Fill = canvas.Paint{Color: canvas.White}
		r.RenderPath(canvas.Rectangle(width, height), bg, canvas.Identity)

		// Bounding box of the footprint.
		boxStyle := canvas.DefaultStyle
		boxStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		boxStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		boxStyle.StrokeWidth = span / 500
		box := canvas.Rectangle(maxX-minX, maxY-minY).Translate(padding, padding)
		r.RenderPath(box, boxStyle, canvas.Identity)

		for _, m := range marks {
			style := canvas.DefaultStyle
			style.Fill = canvas.Paint{Color: m.c}
			dot := canvas.Circle(radius).Translate(m.x-minX+padding, m.y-minY+padding)
			r.RenderPath(dot, style, canvas.Identity)
		}

		vp.drawScaleBar(r, width, span)
	}
}

// drawScaleBar draws a round-length reference bar in the bottom-left corner.
func (vp *VectorPreview) drawScaleBar(r vectorRenderer, width, span float64) {
	bar := math.Pow(10, math.Floor(math.Log10(span/5)))
	if bar <= 0 || math.IsNaN(bar) || math.IsInf(bar, 0) {
		return
	}

	style := canvas.DefaultStyle
	style.Fill = canvas.Paint{Color: canvas.Transparent}
	style.Stroke = canvas.Paint{Color: canvas.Black}
	style.StrokeWidth = span / 300

	inset := width * 0.03
	line := &canvas.Path{}
	line.MoveTo(inset, inset)
	line.LineTo(inset+bar, inset)
	r.RenderPath(line, style, canvas.Identity)
}
