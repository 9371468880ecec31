package layout

// This file converts between the displayed editor space and the canonical canvas.

// Conversion constants between pt and mm. The canvas backend measures in mm and
// fonts in pt; renderers map one canvas millimetre to one output pixel.
const (
	PtToMm = 25.4 / 72.0
	MmToPt = 72.0 / 25.4
)

// PxToPt converts a CSS-like pixel font size to the pt size of an equivalent
// font face when one canvas unit is rendered as one pixel.
func PxToPt(px float64) float64 { return px * MmToPt }

// ScaleFactor returns the multiplier from a displayed square of edge
// displaySize to the canonical CanvasSize. Non-positive sizes mean the
// coordinates are already canonical.
func ScaleFactor(displaySize float64) float64 {
	if displaySize <= 0 {
		return 1
	}
	return CanvasSize / displaySize
}

// Scale multiplies geometry and font size by f.
func (tb TextBox) Scale(f float64) TextBox {
	if f == 1 {
		return tb
	}
	return TextBox{
		Text:     tb.Text,
		X:        tb.X * f,
		Y:        tb.Y * f,
		Width:    tb.Width * f,
		Height:   tb.Height * f,
		FontSize: tb.FontSize * f,
	}
}

// Canonical returns the request with every box in canvas coordinates and
// DisplaySize cleared. The receiver is not modified.
func (r Request) Canonical() Request {
	f := ScaleFactor(r.DisplaySize)
	boxes := make([]TextBox, len(r.TextBoxes))
	for i, tb := range r.TextBoxes {
		boxes[i] = tb.Scale(f)
	}
	return Request{MemeNumber: r.MemeNumber, TextBoxes: boxes}
}

// ClipRect intersects the rectangle (x, y, w, h) with the square [lo, hi]².
// ok is false when nothing of it remains.
func ClipRect(x, y, w, h, lo, hi float64) (cx, cy, cw, ch float64, ok bool) {
	x0, y0 := max(x, lo), max(y, lo)
	x1, y1 := min(x+w, hi), min(y+h, hi)
	if !(x1 > x0 && y1 > y0) {
		return 0, 0, 0, 0, false
	}
	return x0, y0, x1 - x0, y1 - y0, true
}
