package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func transparentPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 10, A: 128})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeImageFlattensAlphaToJPEG(t *testing.T) {
	out, err := normalizeImage(transparentPNG(t))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Fatalf("expected JPEG output, decode failed: %v", err)
	}
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	_, err := normalizeImage([]byte("definitely not an image"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestDecodeBase64ImageStripsDataURI(t *testing.T) {
	raw := transparentPNG(t)
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeBase64Image(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatal("expected decoded bytes to match original image")
	}
}

func TestDecodeBase64ImageRejectsInvalid(t *testing.T) {
	if _, err := DecodeBase64Image("%%%not-base64%%%"); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}
