// Package faceimage contains image helpers shared by enrollment and
// recognition: the minimum validity rule, cropping, scaling and encoding.
package faceimage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
)

// Minimum size of an image sent to the remote comparison service or saved as
// an enrollment reference.
const (
	MinSide = 48
	MinArea = 4096
)

// DefaultJPEGQuality is used when encoding crops and frames.
const DefaultJPEGQuality = 90

// Valid reports whether an image of the given size is usable. This is the
// single predicate applied everywhere an image is checked before use.
func Valid(width, height int) bool {
	return width >= MinSide && height >= MinSide && width*height >= MinArea
}

// ValidImage applies Valid to an image. A nil image is never valid.
func ValidImage(img image.Image) bool {
	if img == nil {
		return false
	}
	b := img.Bounds()
	return Valid(b.Dx(), b.Dy())
}

// Crop returns the part of img inside bbox, clamped to the image bounds.
// Returns nil if the clamped region is empty.
func Crop(img image.Image, bbox BBox) image.Image {
	if img == nil {
		return nil
	}
	r := bbox.Rect().Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Downscale resizes an image to fit within maxSize while keeping its aspect ratio.
// Images already small enough are returned unchanged.
func Downscale(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var newWidth, newHeight int
	if width > height {
		if width <= maxSize {
			return img
		}
		newWidth = maxSize
		newHeight = height * maxSize / width
	} else {
		if height <= maxSize {
			return img
		}
		newHeight = maxSize
		newWidth = width * maxSize / height
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// EncodeJPEG encodes an image as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: DefaultJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes JPEG, PNG or BMP data.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}
