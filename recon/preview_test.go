package recon

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestRenderPreview(t *testing.T) {
	s := newTestSession(t)

	img := s.RenderPreview()
	if img == nil {
		t.Fatal("RenderPreview returned nil")
	}
	b := img.Bounds()
	if b.Dx() <= 2*previewPadding || b.Dy() <= previewPadding {
		t.Errorf("image size %dx%d too small", b.Dx(), b.Dy())
	}
	// The fixture spans 10x1 units, so the image is much wider than tall.
	if b.Dx() <= b.Dy() {
		t.Errorf("aspect ratio wrong: %dx%d for a wide point cloud", b.Dx(), b.Dy())
	}
}

func TestRenderPreviewEmpty(t *testing.T) {
	s := NewSession("scan-1", NewReconstruction())

	img := s.RenderPreview()
	if img == nil {
		t.Fatal("RenderPreview returned nil for an empty model")
	}
}

func TestSavePreviewPNG(t *testing.T) {
	s := newTestSession(t)
	path := filepath.Join(t.TempDir(), "preview.png")

	if err := s.SavePreviewPNG(path); err != nil {
		t.Fatalf("SavePreviewPNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("output is not a decodable PNG: %v", err)
	}
}

func TestVectorPreviewSVG(t *testing.T) {
	s := newTestSession(t)

	var buf bytes.Buffer
	if err := NewVectorPreview().RenderSVG(&buf, s); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("SVG output is empty")
	}
	if !bytes.Contains(buf.Bytes(), []byte("<svg")) {
		t.Error("output does not contain an <svg tag")
	}
	if !bytes.Contains(buf.Bytes(), []byte("path")) {
		t.Error("output does not contain path elements")
	}
}

func TestVectorPreviewPNG(t *testing.T) {
	s := newTestSession(t)

	var buf bytes.Buffer
	if err := NewVectorPreview().RenderPNG(&buf, s); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Errorf("output is not a decodable PNG: %v", err)
	}
}

func TestVectorPreviewEmptyModel(t *testing.T) {
	s := NewSession("scan-1", NewReconstruction())

	var buf bytes.Buffer
	if err := NewVectorPreview().RenderSVG(&buf, s); err != nil {
		t.Fatalf("RenderSVG on empty model: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty-model SVG output should still be a valid document")
	}
}
