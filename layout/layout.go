package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/zeptools/fieldticket/pdfs"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

const (
	DefaultFont     = "Helvetica"
	DefaultFontSize = 9.0
)

// Field is a single-line text slot. The anchor is the left end of the text
// baseline (center or right end for the other alignments).
type Field struct {
	Anchor
	FontSize float64 `json:"font_size"`
	MaxWidth float64 `json:"max_width"` // px. 0 = unbounded
	Align    Align   `json:"align"`
}

// Box is a multi-line text area. The anchor is its top-left corner
type Box struct {
	Anchor
	FontSize   float64 `json:"font_size"`
	Width      float64 `json:"width"`       // px
	Height     float64 `json:"height"`      // px
	LineHeight float64 `json:"line_height"` // px
}

// MaxLines is the number of lines that fit in the box height
func (b Box) MaxLines() int {
	if b.LineHeight <= 0 {
		return 0
	}
	return int(b.Height / b.LineHeight)
}

// Baseline returns the pixel y of line i (0-basis)
func (b Box) Baseline(i int, scale float64) float64 {
	return b.Y + b.FontSize*scale + float64(i)*b.LineHeight
}

type Column struct {
	X        float64 `json:"x"`
	FontSize float64 `json:"font_size"`
	MaxWidth float64 `json:"max_width"`
	Align    Align   `json:"align"`
}

// Table is a fixed list of row slots sharing the same columns.
// Rows holds the baseline y of each slot, top to bottom
type Table struct {
	Columns map[string]Column `json:"columns"`
	Rows    []float64         `json:"rows"`
}

func (t Table) Slots() int {
	return len(t.Rows)
}

// Slot returns the anchor-set of row slot i
func (t Table) Slot(i int) map[string]Field {
	slot := make(map[string]Field, len(t.Columns))
	for name, col := range t.Columns {
		slot[name] = Field{
			Anchor:   Anchor{X: col.X, Y: t.Rows[i]},
			FontSize: col.FontSize,
			MaxWidth: col.MaxWidth,
			Align:    col.Align,
		}
	}
	return slot
}

// SignatureBlock is the bounding box for the signature image.
// Anchor is the top-left corner in px, Width/Height are in `pt`
type SignatureBlock struct {
	Anchor
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout maps document field names onto a fixed-layout template
type Layout struct {
	Name           string           `json:"name"`
	Template       string           `json:"template"`                  // template file name at the template source
	TemplateDigest string           `json:"template_digest,omitempty"` // hex BLAKE2b-256 of the template. optional
	Scale          float64          `json:"scale"`                     // px per pt
	Font           string           `json:"font"`
	Fields         map[string]Field `json:"fields"`
	Boxes          map[string]Box   `json:"boxes"`
	Tables         map[string]Table `json:"tables"`
	Signature      *SignatureBlock  `json:"signature,omitempty"`
}

// Parse decodes a layout document and fills defaults
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if l.Name == "" {
		return nil, errors.New("layout name is required")
	}
	if l.Template == "" {
		return nil, fmt.Errorf("layout %q: template is required", l.Name)
	}
	if l.Scale <= 0 {
		return nil, fmt.Errorf("layout %q: scale must be positive", l.Name)
	}
	l.fillDefaults()
	return &l, nil
}

func (l *Layout) fillDefaults() {
	if l.Font == "" {
		l.Font = DefaultFont
	}
	for name, f := range l.Fields {
		if f.FontSize <= 0 {
			f.FontSize = DefaultFontSize
		}
		if f.Align == "" {
			f.Align = AlignLeft
		}
		l.Fields[name] = f
	}
	for name, b := range l.Boxes {
		if b.FontSize <= 0 {
			b.FontSize = DefaultFontSize
		}
		if b.LineHeight <= 0 {
			b.LineHeight = b.FontSize * l.Scale * 1.3
		}
		l.Boxes[name] = b
	}
	for name, t := range l.Tables {
		for colName, c := range t.Columns {
			if c.FontSize <= 0 {
				c.FontSize = DefaultFontSize
			}
			if c.Align == "" {
				c.Align = AlignLeft
			}
			t.Columns[colName] = c
		}
		l.Tables[name] = t
	}
}

// Transform for a template page of the given height
func (l *Layout) Transform(pageHeight float64) Transform {
	return Transform{Scale: l.Scale, PageHeight: pageHeight}
}

// Validate checks that every anchor, and the extent it claims, lies inside
// the template's pixel bounds. All problems are reported at once
func (l *Layout) Validate(page pdfs.PaperSize) error {
	if l.Scale <= 0 {
		return fmt.Errorf("layout %q: scale must be positive", l.Name)
	}
	v := validator{
		layout: l.Name,
		w:      page.Width * l.Scale,
		h:      page.Height * l.Scale,
	}
	for _, name := range sortedKeys(l.Fields) {
		v.field("field "+name, l.Fields[name])
	}
	for _, name := range sortedKeys(l.Boxes) {
		b := l.Boxes[name]
		v.rect("box "+name, b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		if b.MaxLines() == 0 {
			v.add("box %s: height %.1f fits no line of height %.1f", name, b.Height, b.LineHeight)
		}
	}
	for _, name := range sortedKeys(l.Tables) {
		t := l.Tables[name]
		if t.Slots() == 0 {
			v.add("table %s: no row slots", name)
		}
		for i := range t.Rows {
			slot := t.Slot(i)
			for _, col := range sortedKeys(slot) {
				v.field(fmt.Sprintf("table %s row %d column %s", name, i, col), slot[col])
			}
		}
	}
	if s := l.Signature; s != nil {
		if s.Width <= 0 || s.Height <= 0 {
			v.add("signature: size %.1fx%.1f pt must be positive", s.Width, s.Height)
		}
		v.rect("signature", s.X, s.Y, s.X+s.Width*l.Scale, s.Y+s.Height*l.Scale)
	}
	return errors.Join(v.errs...)
}

type validator struct {
	layout string
	w, h   float64
	errs   []error
}

func (v *validator) add(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("layout %q: "+format, append([]any{v.layout}, args...)...))
}

func (v *validator) field(what string, f Field) {
	left, right := f.X, f.X
	switch f.Align {
	case AlignRight:
		left = f.X - f.MaxWidth
	case AlignCenter:
		left, right = f.X-f.MaxWidth/2, f.X+f.MaxWidth/2
	default:
		right = f.X + f.MaxWidth
	}
	v.rect(what, left, f.Y, right, f.Y)
}

func (v *validator) rect(what string, x0, y0, x1, y1 float64) {
	if x0 < 0 || y0 < 0 || x1 > v.w || y1 > v.h {
		v.add("%s (%.1f,%.1f)-(%.1f,%.1f) outside template bounds %.0fx%.0f px", what, x0, y0, x1, y1, v.w, v.h)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
