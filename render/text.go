package render

import (
	"strings"
	"unicode/utf8"
)

// AvgCharWidth is the estimated glyph advance as a fraction of the font size.
// Budgets are estimated from it rather than measured from font metrics
const AvgCharWidth = 0.5

const Ellipsis = "..."

// CharBudget estimates how many characters fit in maxWidthPx.
// A non-positive width means unbounded and yields -1
func CharBudget(maxWidthPx, fontSize, scale float64) int {
	if maxWidthPx <= 0 {
		return -1
	}
	if fontSize <= 0 || scale <= 0 {
		return 0
	}
	return int(maxWidthPx / scale / (fontSize * AvgCharWidth))
}

// EstimatedWidth is the estimated rendered width of s in `pt`
func EstimatedWidth(s string, fontSize float64) float64 {
	return float64(utf8.RuneCountInString(s)) * fontSize * AvgCharWidth
}

// FitLine returns s unchanged when it fits the budget, otherwise a
// shortened copy ending with Ellipsis and true
func FitLine(s string, budget int) (string, bool) {
	runes := []rune(s)
	if budget < 0 || len(runes) <= budget {
		return s, false
	}
	return withEllipsis(runes, budget), true
}

// withEllipsis cuts runes so that the result plus Ellipsis fits budget
func withEllipsis(runes []rune, budget int) string {
	marker := utf8.RuneCountInString(Ellipsis)
	if budget <= marker {
		if budget < 0 {
			budget = 0
		}
		if budget > len(runes) {
			budget = len(runes)
		}
		return string(runes[:budget])
	}
	keep := budget - marker
	if keep > len(runes) {
		keep = len(runes)
	}
	return strings.TrimRight(string(runes[:keep]), " ") + Ellipsis
}

// Wrap greedily word-wraps s into lines of at most budget characters.
// Explicit newlines start a new line, words longer than the budget are split.
// A negative budget only splits on newlines
func Wrap(s string, budget int) []string {
	if budget == 0 {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var lines []string
	for _, paragraph := range strings.Split(s, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		if budget < 0 {
			lines = append(lines, strings.Join(words, " "))
			continue
		}
		var line []rune
		for _, word := range words {
			w := []rune(word)
			for len(w) > budget {
				if len(line) > 0 {
					lines = append(lines, string(line))
					line = nil
				}
				lines = append(lines, string(w[:budget]))
				w = w[budget:]
			}
			if len(w) == 0 {
				continue
			}
			switch {
			case len(line) == 0:
				line = w
			case len(line)+1+len(w) <= budget:
				line = append(append(line, ' '), w...)
			default:
				lines = append(lines, string(line))
				line = w
			}
		}
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	// leading blank lines are kept, trailing ones never show
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Clip keeps at most maxLines lines. When lines are cut off, the last kept
// line is shortened and suffixed with Ellipsis
func Clip(lines []string, maxLines int, budget int) ([]string, bool) {
	if len(lines) <= maxLines {
		return lines, false
	}
	if maxLines <= 0 {
		return nil, true
	}
	out := append([]string(nil), lines[:maxLines]...)
	last := []rune(out[maxLines-1])
	if budget < 0 {
		budget = len(last) + utf8.RuneCountInString(Ellipsis)
	}
	if len(last)+utf8.RuneCountInString(Ellipsis) <= budget {
		out[maxLines-1] = strings.TrimRight(string(last), " ") + Ellipsis
	} else {
		out[maxLines-1] = withEllipsis(last, budget)
	}
	return out, true
}
