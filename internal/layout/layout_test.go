package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func drawBox(t *rapid.T) Box {
	return Box{
		X:      rapid.Float64Range(-2000, 2000).Draw(t, "x"),
		Y:      rapid.Float64Range(-2000, 2000).Draw(t, "y"),
		Width:  rapid.Float64Range(0, 2000).Draw(t, "width"),
		Height: rapid.Float64Range(0, 2000).Draw(t, "height"),
	}
}

func TestResponsiveExamples(t *testing.T) {
	const viewport = 375

	// chat area parked off-canvas by translateX(100%)
	assert.True(t, OffscreenRight(Box{X: 375, Width: 375, Height: 667}, viewport))
	// slid in
	assert.True(t, AtLeftEdge(Box{X: 0, Width: 375, Height: 667}, 0.5))
	assert.False(t, OffscreenRight(Box{X: 0, Width: 375, Height: 667}, viewport))
	// auth card at 90% of a phone screen
	assert.True(t, WiderThan(Box{Width: 337.5}, 300))
	assert.True(t, FillsFraction(Box{Width: 337.5}, viewport, 0.9))
	assert.False(t, FillsFraction(Box{Width: 280}, viewport, 0.9))
}

func TestOffscreenAndWithinExclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := drawBox(t)
		vw := rapid.Float64Range(1, 3000).Draw(t, "viewport")
		if b.Width > 0 && OffscreenRight(b, vw) && Within(b, vw) {
			t.Fatalf("box %v both offscreen and within viewport %v", b, vw)
		}
	})
}

func TestAtLeftEdgeMonotonicInTolerance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := drawBox(t)
		tol := rapid.Float64Range(0, 100).Draw(t, "tol")
		extra := rapid.Float64Range(0, 100).Draw(t, "extra")
		if AtLeftEdge(b, tol) && !AtLeftEdge(b, tol+extra) {
			t.Fatalf("tolerance %v accepted %v but %v rejected it", tol, b, tol+extra)
		}
	})
}

func TestFillsFractionImpliesWiderThanSmaller(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := drawBox(t)
		vw := rapid.Float64Range(1, 3000).Draw(t, "viewport")
		f := rapid.Float64Range(0.01, 1).Draw(t, "fraction")
		if FillsFraction(b, vw, f) && !WiderThan(b, vw*f/2) {
			t.Fatalf("box %v fills %v of %v but is not wider than half that", b, f, vw)
		}
	})
}

func TestEmpty(t *testing.T) {
	assert.True(t, Box{}.Empty())
	assert.True(t, Box{Width: 10}.Empty())
	assert.False(t, Box{Width: 10, Height: 1}.Empty())
	assert.Equal(t, "x=1.0 y=2.0 w=3.0 h=4.0", Box{1, 2, 3, 4}.String())
}
