package source

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestDecode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 2 {
		t.Errorf("unexpected bounds %v", got.Bounds())
	}

	if _, err := Decode(bytes.NewReader([]byte("definitely not an image"))); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 3, 3)
	writePNG(t, filepath.Join(dir, "a.png"), 5, 2)
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip me"), 0644)

	src, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.PageCount() != 2 {
		t.Fatalf("expected 2 images, got %d", src.PageCount())
	}

	// sorted by name, so a.png comes first
	img, err := src.RenderPage(0, 72)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 2 {
		t.Errorf("expected a.png (5x2), got %v", img.Bounds())
	}

	if _, err := src.RenderPage(2, 72); err == nil {
		t.Error("expected out of range error")
	}
}

func TestImageSourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	writePNG(t, path, 7, 9)

	src, err := NewImageSource(path)
	if err != nil {
		t.Fatalf("NewImageSource failed: %v", err)
	}
	if src.PageCount() != 1 {
		t.Errorf("expected 1 page, got %d", src.PageCount())
	}
}
