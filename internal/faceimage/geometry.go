package faceimage

import (
	"encoding/json"
	"fmt"
	"image"
)

// BBox is a face bounding box [x1, y1, x2, y2] in pixel coordinates.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// BBoxFromSlice converts the [x1, y1, x2, y2] form used by the embedding service.
func BBoxFromSlice(s []float64) (BBox, error) {
	if len(s) != 4 {
		return BBox{}, fmt.Errorf("bbox must have 4 values, got %d", len(s))
	}
	if s[2] < s[0] || s[3] < s[1] {
		return BBox{}, fmt.Errorf("bbox corners inverted: %v", s)
	}
	return BBox{X1: s[0], Y1: s[1], X2: s[2], Y2: s[3]}, nil
}

// Rect converts the box to integer pixel coordinates, truncating like the
// detector output is truncated before cropping.
func (b BBox) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// Width returns the integer pixel width.
func (b BBox) Width() int {
	return int(b.X2) - int(b.X1)
}

// Height returns the integer pixel height.
func (b BBox) Height() int {
	return int(b.Y2) - int(b.Y1)
}

// MinSide returns the shorter side of the box.
func (b BBox) MinSide() int {
	return min(b.Width(), b.Height())
}

// Slice returns the [x1, y1, x2, y2] form.
func (b BBox) Slice() []float64 {
	return []float64{b.X1, b.Y1, b.X2, b.Y2}
}

// MarshalJSON encodes the box as [x1, y1, x2, y2].
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Slice())
}
