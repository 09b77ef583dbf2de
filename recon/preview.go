package recon

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	previewMaxSize = 1600 // longest image edge in pixels
	previewPadding = 40   // pixels of margin around the point cloud
)

var previewBackground = color.RGBA{240, 240, 240, 255}

// RenderPreview draws a top-down (XY plane) raster view of the point cloud,
// each point in its stored color, with a point count and scale bar
// annotation. World Y grows up, image Y grows down, so the view is flipped
// vertically.
func (s *Session) RenderPreview() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range s.recon.Points3D {
		minX = math.Min(minX, pt.XYZ[0])
		maxX = math.Max(maxX, pt.XYZ[0])
		minY = math.Min(minY, pt.XYZ[1])
		maxY = math.Max(maxY, pt.XYZ[1])
	}

	spanX := maxX - minX
	spanY := maxY - minY
	if len(s.recon.Points3D) == 0 || spanX <= 0 && spanY <= 0 {
		img := image.NewRGBA(image.Rect(0, 0, 2*previewPadding, 2*previewPadding))
		fillBackground(img)
		return img
	}

	scale := float64(previewMaxSize-2*previewPadding) / math.Max(spanX, spanY)
	width := int(spanX*scale) + 2*previewPadding
	height := int(spanY*scale) + 2*previewPadding

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillBackground(img)

	for _, id := range s.recon.PointOrder {
		pt := s.recon.Points3D[id]
		x := int((pt.XYZ[0]-minX)*scale) + previewPadding
		y := height - previewPadding - int((pt.XYZ[1]-minY)*scale)
		if x < 0 || x >= width || y < 0 || y >= height {
			continue
		}
		img.Set(x, y, color.RGBA{pt.RGB[0], pt.RGB[1], pt.RGB[2], 255})
	}

	s.drawScaleBar(img, width, height, scale)
	drawText(img, 10, 20, fmt.Sprintf("%d points", len(s.recon.Points3D)), color.RGBA{0, 0, 0, 255})

	return img
}

// SavePreviewPNG renders the preview and writes it to path.
func (s *Session) SavePreviewPNG(path string) error {
	img := s.RenderPreview()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return png.Encode(f, img)
}

// drawScaleBar draws a horizontal reference bar of a round world length in
// the bottom-left corner. Callers hold the read lock.
func (s *Session) drawScaleBar(img *image.RGBA, width, height int, scale float64) {
	// Round the bar down to a power of ten that spans roughly a fifth of
	// the image.
	target := float64(width-2*previewPadding) / 5 / scale
	if target <= 0 {
		return
	}
	bar := math.Pow(10, math.Floor(math.Log10(target)))

	unit := "units"
	if s.calib.IsCalibrated() {
		unit = "m"
	}

	barPX := int(bar * scale)
	y := height - 15
	black := color.RGBA{0, 0, 0, 255}
	for x := 10; x <= 10+barPX && x < width; x++ {
		img.Set(x, y, black)
		img.Set(x, y-1, black)
	}
	drawText(img, 10, y-6, fmt.Sprintf("%g %s", bar, unit), black)
}

func fillBackground(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, previewBackground)
		}
	}
}

// drawText renders a small label with the fixed 7x13 bitmap font.
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
