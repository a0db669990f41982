// Package layout holds the geometry predicates used to infer layout state
// from element bounding boxes.
package layout

import (
	"fmt"
	"math"
)

// Box is an element's on-screen rectangle in CSS pixels
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b Box) String() string {
	return fmt.Sprintf("x=%.1f y=%.1f w=%.1f h=%.1f", b.X, b.Y, b.Width, b.Height)
}

// Right is the x coordinate of the right edge
func (b Box) Right() float64 { return b.X + b.Width }

// Empty reports a zero-area box, as returned for display:none elements
func (b Box) Empty() bool { return b.Width <= 0 || b.Height <= 0 }

// OffscreenRight reports whether the box starts at or past the viewport's right edge
func OffscreenRight(b Box, viewportWidth float64) bool {
	return b.X >= viewportWidth
}

// AtLeftEdge reports whether the box is aligned with the viewport's left edge
func AtLeftEdge(b Box, tolerance float64) bool {
	return math.Abs(b.X) <= tolerance
}

// FillsFraction reports whether the box is at least fraction of the viewport wide
func FillsFraction(b Box, viewportWidth, fraction float64) bool {
	return b.Width >= viewportWidth*fraction
}

// WiderThan reports whether the box is strictly wider than min
func WiderThan(b Box, min float64) bool {
	return b.Width > min
}

// Within reports whether the box lies entirely inside the viewport horizontally
func Within(b Box, viewportWidth float64) bool {
	return b.X >= 0 && b.Right() <= viewportWidth
}
