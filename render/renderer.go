package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/pdfs"
	"github.com/zeptools/fieldticket/sec"
	"github.com/zeptools/fieldticket/templates"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultFetchRetries = 1
)

var (
	// ErrTemplate is fatal: the template could not be fetched or loaded. No output is produced
	ErrTemplate = errors.New("template unavailable")
	// ErrLayout means the layout does not fit the template page
	ErrLayout = errors.New("layout does not fit template")
)

// Renderer overlays documents onto templates.
// It holds no per-render state and is safe for concurrent use
type Renderer struct {
	Source       templates.Source
	NewWriter    pdfs.WriterFactory
	FetchTimeout time.Duration // per attempt. 0 = DefaultFetchTimeout
	FetchRetries int           // 0 = DefaultFetchRetries, negative = no retry
}

func (r *Renderer) Render(ctx context.Context, l *layout.Layout, doc Document) (*Result, error) {
	tpl, w, page, err := r.load(ctx, l)
	if err != nil {
		return nil, err
	}

	res := &Result{PageSize: page, Rows: make(map[string]RowReport)}
	if l.TemplateDigest != "" && !sec.MatchDigest(tpl, l.TemplateDigest) {
		res.warn(WarnTemplateMismatch, l.Template, "digest %s, layout %q expects %s", sec.Digest(tpl), l.Name, l.TemplateDigest)
	}

	p := &pass{w: w, l: l, tf: l.Transform(page.Height), res: res}
	p.fields(doc.Fields)
	p.boxes(doc.Boxes)
	p.tables(doc.Tables)
	p.signature(doc.Signature)

	if res.PDF, err = w.ProduceBytes(); err != nil {
		return nil, fmt.Errorf("produce pdf: %w", err)
	}
	log.Printf("[INFO][RENDER] %s: %d bytes, %d warnings", l.Name, len(res.PDF), len(res.Warnings))
	return res, nil
}

// Check fetches the layout's template and validates the layout against its page
func (r *Renderer) Check(ctx context.Context, l *layout.Layout) (pdfs.PaperSize, error) {
	_, _, page, err := r.load(ctx, l)
	return page, err
}

// load fetches the template into a fresh writer and checks that l fits its page
func (r *Renderer) load(ctx context.Context, l *layout.Layout) ([]byte, pdfs.Writer, pdfs.PaperSize, error) {
	timeout := r.FetchTimeout
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	retries := r.FetchRetries
	switch {
	case retries == 0:
		retries = DefaultFetchRetries
	case retries < 0: // disabled
		retries = 0
	}
	tpl, err := templates.FetchWithRetry(ctx, r.Source, l.Template, timeout, retries)
	if err != nil {
		return nil, nil, pdfs.PaperSize{}, fmt.Errorf("%w: %w", ErrTemplate, err)
	}

	w := r.NewWriter()
	page, err := w.LoadTemplate(tpl)
	if err != nil {
		return nil, nil, pdfs.PaperSize{}, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	if err = l.Validate(page); err != nil {
		return nil, nil, page, fmt.Errorf("%w: %w", ErrLayout, err)
	}
	return tpl, w, page, nil
}

// pass is the state of one render
type pass struct {
	w   pdfs.Writer
	l   *layout.Layout
	tf  layout.Transform
	res *Result
}

func (p *pass) fields(values map[string]string) {
	for _, name := range sortedNames(values) {
		f, ok := p.l.Fields[name]
		if !ok {
			if values[name] != "" {
				p.res.warn(WarnUnknownTarget, "field "+name, "layout %q has no such field", p.l.Name)
			}
			continue
		}
		p.text(name, f, values[name])
	}
}

// text draws one single-line value, truncating it to the field's budget
func (p *pass) text(target string, f layout.Field, value string) {
	if value == "" {
		return
	}
	line, cut := FitLine(value, CharBudget(f.MaxWidth, f.FontSize, p.l.Scale))
	if cut {
		p.res.warn(WarnTruncated, target, "%q shortened to %q", value, line)
	}
	pt := p.tf.ToDoc(f.Anchor)
	switch f.Align {
	case layout.AlignCenter:
		pt.X -= EstimatedWidth(line, f.FontSize) / 2
	case layout.AlignRight:
		pt.X -= EstimatedWidth(line, f.FontSize)
	}
	p.w.SetFont(p.l.Font, "", f.FontSize)
	p.w.Text(pt.X, pt.Y, line)
}

func (p *pass) boxes(values map[string]string) {
	for _, name := range sortedNames(values) {
		b, ok := p.l.Boxes[name]
		if !ok {
			if values[name] != "" {
				p.res.warn(WarnUnknownTarget, "box "+name, "layout %q has no such box", p.l.Name)
			}
			continue
		}
		if values[name] == "" {
			continue
		}
		budget := CharBudget(b.Width, b.FontSize, p.l.Scale)
		lines, clipped := Clip(Wrap(values[name], budget), b.MaxLines(), budget)
		if clipped {
			p.res.warn(WarnClipped, "box "+name, "text clipped to %d lines", b.MaxLines())
		}
		p.w.SetFont(p.l.Font, "", b.FontSize)
		for i, line := range lines {
			if line == "" {
				continue
			}
			pt := p.tf.ToDoc(layout.Anchor{X: b.X, Y: b.Baseline(i, p.l.Scale)})
			p.w.Text(pt.X, pt.Y, line)
		}
	}
}

func (p *pass) tables(values map[string][]Row) {
	for _, name := range sortedNames(values) {
		rows := values[name]
		t, ok := p.l.Tables[name]
		if !ok {
			if len(rows) > 0 {
				p.res.Rows[name] = RowReport{Dropped: len(rows)}
				p.res.warn(WarnUnknownTarget, "table "+name, "layout %q has no such table, %d rows dropped", p.l.Name, len(rows))
			}
			continue
		}
		n := min(len(rows), t.Slots())
		for i := 0; i < n; i++ {
			slot := t.Slot(i)
			for _, col := range sortedNames(slot) {
				p.text(fmt.Sprintf("table %s row %d column %s", name, i, col), slot[col], rows[i][col])
			}
		}
		report := RowReport{Rendered: n, Dropped: len(rows) - n}
		p.res.Rows[name] = report
		if report.Dropped > 0 {
			p.res.warn(WarnRowsDropped, "table "+name, "%d of %d rows dropped, %d slots available", report.Dropped, len(rows), t.Slots())
		}
	}
}

// signature never aborts the render: any failure becomes a warning
func (p *pass) signature(encoded string) {
	if encoded == "" {
		return
	}
	block := p.l.Signature
	if block == nil {
		p.res.warn(WarnSignatureSkipped, "signature", "layout %q has no signature block", p.l.Name)
		return
	}
	img, err := DecodeImage(encoded)
	if err != nil {
		p.res.warn(WarnSignatureSkipped, "signature", "%v", err)
		return
	}
	b := img.Bounds()
	w, h := FitBox(float64(b.Dx()), float64(b.Dy()), block.Width, block.Height)
	top := p.tf.ToDoc(block.Anchor)
	if err = p.w.Image("signature", Downsample(img, w), top.X, top.Y-h, w, h); err != nil {
		p.res.warn(WarnSignatureSkipped, "signature", "%v", err)
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
