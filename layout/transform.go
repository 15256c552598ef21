package layout

// Anchor is a position on the template raster the layout was measured on.
// Pixels, origin top-left, y grows downward.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point is a position in PDF user space.
// Typographic points, origin bottom-left, y grows upward.
type Point struct {
	X float64
	Y float64
}

// Transform converts between the raster pixel grid and PDF user space.
// Scale is pixels per point and is constant across the page.
type Transform struct {
	Scale      float64
	PageHeight float64 // in `pt`
}

func (t Transform) ToDoc(a Anchor) Point {
	return Point{
		X: a.X / t.Scale,
		Y: t.PageHeight - a.Y/t.Scale,
	}
}

// ToPixel is the inverse of ToDoc
func (t Transform) ToPixel(p Point) Anchor {
	return Anchor{
		X: p.X * t.Scale,
		Y: (t.PageHeight - p.Y) * t.Scale,
	}
}

// Length converts a pixel distance into points
func (t Transform) Length(px float64) float64 {
	return px / t.Scale
}
