package main

import (
	"fmt"
	"html"
	"strings"
)

// barSeries is one labelled value per bar, already ordered for display
type barSeries struct {
	Title  string
	Color  string
	Labels []string
	Values []uint64
}

func (s barSeries) max() uint64 {
	var m uint64
	for _, v := range s.Values {
		if v > m {
			m = v
		}
	}
	return m
}

// barChartSVG renders s as a fixed-size dark-theme bar chart
func barChartSVG(s barSeries) string {
	const (
		width   = 600
		height  = 400
		padding = 50
	)
	if len(s.Labels) == 0 {
		return ""
	}
	barWidth := (width - 2*padding) / len(s.Labels)
	maxBarHeight := uint64(height - 2*padding)
	maxVal := s.max()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`, width, height, width, height)
	sb.WriteString(`<rect width="100%" height="100%" fill="#1a1a1a" />`)
	fmt.Fprintf(&sb, `<text x="%d" y="30" fill="white" font-family="Arial" font-size="20" text-anchor="middle">%s</text>`, width/2, html.EscapeString(s.Title))

	for i, val := range s.Values {
		barHeight := 0
		if maxVal > 0 {
			barHeight = int(val * maxBarHeight / maxVal)
		}
		x := padding + i*barWidth
		y := height - padding - barHeight
		cx := x + barWidth/2

		fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" rx="4" />`, x+5, y, barWidth-10, barHeight, s.Color)
		fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="white" font-family="Arial" font-size="12" text-anchor="end" transform="rotate(-45 %d %d)">%s</text>`,
			cx, height-padding+20, cx, height-padding+20, html.EscapeString(s.Labels[i]))
		fmt.Fprintf(&sb, `<text x="%d" y="%d" fill="white" font-family="Arial" font-size="10" text-anchor="middle">%d</text>`, cx, y-5, val)
	}

	fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="white" stroke-width="2" />`, padding, height-padding, width-padding, height-padding)
	sb.WriteString(`</svg>`)
	return sb.String()
}
