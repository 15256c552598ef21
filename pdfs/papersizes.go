package pdfs

import "fmt"

type PaperSize struct {
	Name   string
	Width  float64 // in `pt` (1" = 72pts)
	Height float64 // in `pt`
}

var (
	LetterSize = PaperSize{Name: "Letter", Width: 612, Height: 792}        // 8.5" x 11"
	A4Size     = PaperSize{Name: "A4", Width: 595.27559, Height: 841.88976} // 210mm x 297mm
)

// NamedPaperSize labels a measured page size with a known paper name if it matches within half a point
func NamedPaperSize(width, height float64) PaperSize {
	for _, known := range []PaperSize{LetterSize, A4Size} {
		if near(width, known.Width) && near(height, known.Height) {
			return known
		}
	}
	return PaperSize{Name: fmt.Sprintf("%.0fx%.0f", width, height), Width: width, Height: height}
}

func near(a, b float64) bool {
	d := a - b
	return d > -0.5 && d < 0.5
}
