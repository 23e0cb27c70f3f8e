// Package svgwriter paints a chart.Scene as a standalone SVG document. Each
// call writes the complete element, so the target container is replaced
// wholesale.
package svgwriter

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/wasatchbitworks/birdworks-live/internal/chart"
)

// Encode writes s to w as an <svg> element.
func Encode(w io.Writer, s *chart.Scene) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}

	e.printf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" class="w-full h-auto" role="img" aria-label="%s" data-chart="%s">`,
		num(s.Width), num(s.Height), attr(s.Label), attr(s.Name))

	for _, sh := range s.Shapes {
		switch v := sh.(type) {
		case chart.Rect:
			e.rect(v)
		case chart.Line:
			e.line(v)
		case chart.Text:
			e.text(v)
		}
	}
	e.printf("</svg>")

	if e.err != nil {
		return fmt.Errorf("svg encode %s: %w", s.Name, e.err)
	}
	return bw.Flush()
}

// String renders s to a string.
func String(s *chart.Scene) (string, error) {
	var sb strings.Builder
	if err := Encode(&sb, s); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *encoder) rect(r chart.Rect) {
	e.printf(`<rect x="%s" y="%s" width="%s" height="%s" fill="%s"`,
		num(r.X), num(r.Y), num(r.Width), num(r.Height), attr(r.Fill))
	if r.RX > 0 {
		e.printf(` rx="%s"`, num(r.RX))
	}
	if r.Title == "" {
		e.printf("/>")
		return
	}
	e.printf("><title>%s</title></rect>", text(r.Title))
}

func (e *encoder) line(l chart.Line) {
	width := l.StrokeWidth
	if width <= 0 {
		width = 1
	}
	e.printf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`,
		num(l.X1), num(l.Y1), num(l.X2), num(l.Y2), attr(l.Stroke), num(width))
}

func (e *encoder) text(t chart.Text) {
	anchor := t.Anchor
	if anchor == "" {
		anchor = chart.AnchorStart
	}
	e.printf(`<text x="%s" y="%s" font-size="%spx" fill="%s" text-anchor="%s" font-family="%s"`,
		num(t.X), num(t.Y), num(t.Size), attr(t.Fill), anchor, chart.FontFamily)
	if t.Baseline != "" {
		e.printf(` dominant-baseline="%s"`, attr(t.Baseline))
	}
	if t.Rotate != 0 {
		e.printf(` transform="rotate(%s %s %s)"`, num(t.Rotate), num(t.X), num(t.Y))
	}
	e.printf(">%s</text>", text(t.Content))
}

// num prints at most two decimals and drops trailing zeros.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	r := math.Round(v*100) / 100
	if r == 0 {
		// avoid "-0"
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func text(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func attr(s string) string {
	return text(s)
}
