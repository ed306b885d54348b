/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package tactics

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Field dimensions in normalized units (tenths of a metre on a 105x68 pitch).
const (
	FieldWidth  = 1050
	FieldHeight = 680
)

const (
	fieldGrass  = "#4CAF50"
	lineColor   = "white"
	strokeWidth = 5
)

type rect struct{ x, y, w, h float64 }

type spot struct{ cx, cy, r float64 }

type arc struct {
	x1, y1  float64
	r       float64
	sweep   int
	x2, y2  float64
	label   string
}

var (
	outline = rect{5, 5, 1040, 670}

	boxes = []rect{
		{5, 170, 165, 340},   // left penalty area
		{880, 170, 165, 340}, // right penalty area
		{5, 255, 55, 170},    // left goal area
		{990, 255, 55, 170},  // right goal area
		{-15, 280, 20, 120},  // left goal
		{1045, 280, 20, 120}, // right goal
	}

	spots = []spot{
		{525, 340, 5},
		{110, 340, 5},
		{940, 340, 5},
	}

	arcs = []arc{
		{172, 255, 91.5, 1, 172, 425, "left penalty arc"},
		{878, 255, 91.5, 0, 878, 425, "right penalty arc"},
		{25, 675, 20, 0, 5, 655, "corner"},
		{1025, 5, 20, 0, 1045, 25, "corner"},
		{25, 5, 20, 1, 5, 25, "corner"},
		{1025, 675, 20, 1, 1045, 655, "corner"},
	}
)

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func renderField() []byte {
	var b strings.Builder

	stroke := fmt.Sprintf(`fill="none" stroke="%s" stroke-width="%d"`, lineColor, strokeWidth)

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" preserveAspectRatio="none">`, FieldWidth, FieldHeight)

	fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="%s" stroke-width="%d"/>`,
		num(outline.x), num(outline.y), num(outline.w), num(outline.h), fieldGrass, lineColor, strokeWidth)

	fmt.Fprintf(&b, `<line x1="525" y1="5" x2="525" y2="675" stroke="%s" stroke-width="%d"/>`, lineColor, strokeWidth)
	fmt.Fprintf(&b, `<circle cx="525" cy="340" r="91.5" %s/>`, stroke)

	for _, r := range boxes {
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" %s/>`,
			num(r.x), num(r.y), num(r.w), num(r.h), stroke)
	}

	for _, s := range spots {
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s"/>`, num(s.cx), num(s.cy), num(s.r), lineColor)
	}

	for _, a := range arcs {
		fmt.Fprintf(&b, `<path data-marking="%s" d="M %s,%s A %s,%s 0 0 %d %s,%s" %s/>`,
			a.label, num(a.x1), num(a.y1), num(a.r), num(a.r), a.sweep, num(a.x2), num(a.y2), stroke)
	}

	b.WriteString(`</svg>`)

	return []byte(b.String())
}

var fieldSVG = sync.OnceValue(renderField)

// FieldSVG returns the vector field used when no background image is
// available. The markup is rendered once and shared; callers must not
// modify the returned slice.
func FieldSVG() []byte {
	return fieldSVG()
}
