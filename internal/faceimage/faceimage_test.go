package faceimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want bool
	}{
		{"47x50 too narrow", 47, 50, false},
		{"48x48 area too small", 48, 48, false},
		{"64x64", 64, 64, true},
		{"48x86 just enough area", 48, 86, true},
		{"48x85 one row short", 48, 85, false},
		{"wide strip", 1000, 40, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Valid(tc.w, tc.h); got != tc.want {
				t.Errorf("Valid(%d, %d) = %v, want %v", tc.w, tc.h, got, tc.want)
			}
		})
	}
	if ValidImage(nil) {
		t.Error("nil image must be invalid")
	}
}

func TestCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	img.Set(30, 20, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name  string
		bbox  BBox
		wantW int
		wantH int
		isNil bool
	}{
		{"inside", BBox{X1: 30, Y1: 20, X2: 70.9, Y2: 60.2}, 40, 40, false},
		{"clamped", BBox{X1: -10, Y1: -5, X2: 50, Y2: 200}, 50, 80, false},
		{"outside", BBox{X1: 200, Y1: 200, X2: 300, Y2: 300}, 0, 0, true},
		{"degenerate", BBox{X1: 10, Y1: 10, X2: 10, Y2: 40}, 0, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Crop(img, tc.bbox)
			if tc.isNil {
				if got != nil {
					t.Errorf("expected nil crop, got %v", got.Bounds())
				}
				return
			}
			if got.Bounds().Dx() != tc.wantW || got.Bounds().Dy() != tc.wantH {
				t.Errorf("crop size %v, want %dx%d", got.Bounds(), tc.wantW, tc.wantH)
			}
		})
	}

	crop := Crop(img, BBox{X1: 30, Y1: 20, X2: 40, Y2: 30})
	if r, _, _, _ := crop.At(0, 0).RGBA(); r == 0 {
		t.Error("crop origin should map to the box corner")
	}
}

func TestDownscale(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if Downscale(small, 200) != image.Image(small) {
		t.Error("small image should be returned unchanged")
	}

	big := image.NewRGBA(image.Rect(0, 0, 4000, 2000))
	got := Downscale(big, 1920).Bounds()
	if got.Dx() != 1920 || got.Dy() != 960 {
		t.Errorf("got %dx%d, want 1920x960", got.Dx(), got.Dy())
	}

	tall := image.NewRGBA(image.Rect(0, 0, 1000, 3000))
	got = Downscale(tall, 1500).Bounds()
	if got.Dx() != 500 || got.Dy() != 1500 {
		t.Errorf("got %dx%d, want 500x1500", got.Dx(), got.Dy())
	}
}

func TestEncodeDecode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	data, err := EncodeJPEG(img)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Errorf("unexpected bounds %v", decoded.Bounds())
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	if _, err := Decode(buf.Bytes()); err != nil {
		t.Errorf("PNG decode failed: %v", err)
	}
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := EncodeJPEG(nil); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestBBox(t *testing.T) {
	b, err := BBoxFromSlice([]float64{10.7, 20.2, 110.9, 80.5})
	if err != nil {
		t.Fatalf("BBoxFromSlice failed: %v", err)
	}
	if b.Width() != 100 || b.Height() != 60 || b.MinSide() != 60 {
		t.Errorf("unexpected size %dx%d", b.Width(), b.Height())
	}
	if _, err := BBoxFromSlice([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for short slice")
	}
	if _, err := BBoxFromSlice([]float64{50, 50, 40, 40}); err == nil {
		t.Error("expected error for inverted corners")
	}
	js, _ := b.MarshalJSON()
	if string(js) != "[10.7,20.2,110.9,80.5]" {
		t.Errorf("unexpected JSON %s", js)
	}
}
