package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg failed: %v", err)
	}
	return buf.Bytes()
}

func TestBuildPDFOnePagePerImage(t *testing.T) {
	images := []pdfImage{
		{Name: "front.png", Reader: bytes.NewReader(pngBytes(t, 40, 60))},
		{Name: "back.jpg", Reader: bytes.NewReader(jpegBytes(t, 60, 40))},
		{Name: "extra.png", Reader: bytes.NewReader(pngBytes(t, 20, 20))},
	}

	data, pages, err := buildPDF(images)
	if err != nil {
		t.Fatalf("build pdf failed: %v", err)
	}
	if pages != 3 {
		t.Fatalf("pages want 3 got %d", pages)
	}
	if len(data) == 0 {
		t.Fatalf("pdf bytes should not be empty")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output should start with PDF header")
	}
}

func TestBuildPDFRejectsEmptyInput(t *testing.T) {
	_, _, err := buildPDF(nil)
	if !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("want ErrInvalidFile got %v", err)
	}
}

func TestBuildPDFRejectsUnknownExtension(t *testing.T) {
	images := []pdfImage{
		{Name: "scan.bmp", Reader: bytes.NewReader(pngBytes(t, 10, 10))},
	}
	_, _, err := buildPDF(images)
	if !errors.Is(err, ErrInvalidFile) {
		t.Fatalf("want ErrInvalidFile got %v", err)
	}
}
