package flowengine

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/biter777/countries"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// displayName resolves a dataset country name to a short display form.
func displayName(name string) string {
	resolved := countries.ByName(name).String()
	if resolved == "Unknown" {
		resolved = name
	}
	if idx := strings.Index(resolved, " ("); idx != -1 {
		resolved = resolved[:idx]
	}
	const maxLen = 22
	if len(resolved) > maxLen {
		resolved = resolved[:maxLen-3] + "..."
	}
	return resolved
}

func (e *Engine) drawPanel(screen *ebiten.Image) {
	if e.fontSource == nil {
		return
	}
	margin, fontSize := 40.0, 18.0
	if e.Width > 2000 {
		margin, fontSize = 80.0, 36.0
	}
	face := &text.GoTextFace{Source: e.fontSource, Size: fontSize}
	titleFace := &text.GoTextFace{Source: e.fontSource, Size: fontSize * 0.8}
	monoFace := &text.GoTextFace{Source: e.monoSource, Size: fontSize}
	spacing := fontSize * 1.3

	boxW, boxH := 300.0, 200.0
	if e.Width > 2000 {
		boxW, boxH = 600.0, 400.0
	}
	bx := margin
	by := float64(e.Height)/2.0 - boxH/2.0

	e.drawBox(screen, bx, by, boxW, boxH, fontSize)

	title := "TOP MOVEMENT VOLUME"
	sel := e.session.Selection()
	if sel.Active() {
		title = fmt.Sprintf("FLOWS: %s (%s)", strings.ToUpper(displayName(sel.Country)), sel.Role)
	}
	e.drawBoxTitle(screen, title, titleFace, bx, by, fontSize)

	rowY := by + spacing
	for _, agg := range e.TopAggregates(6) {
		nameOp := &text.DrawOptions{}
		nameOp.GeoM.Translate(bx+5, rowY)
		nameOp.ColorScale.Scale(1, 1, 1, 0.8)
		text.Draw(screen, displayName(agg.Country), face, nameOp)

		countStr := fmt.Sprintf("%d", agg.TotalCount)
		tw, _ := text.Measure(countStr, monoFace, 0)
		countOp := &text.DrawOptions{}
		countOp.GeoM.Translate(bx+boxW-tw-25, rowY)
		countOp.ColorScale.Scale(1, 1, 1, 0.6)
		text.Draw(screen, countStr, monoFace, countOp)
		rowY += spacing
	}

	// Selection detail box: title = country, body = total movement count.
	if e.selectedCountry != "" {
		dy := by + boxH + 30
		dh := fontSize * 4.0
		e.drawBox(screen, bx, dy, boxW, dh, fontSize)
		e.drawBoxTitle(screen, strings.ToUpper(displayName(e.selectedCountry)), titleFace, bx, dy, fontSize)

		body := fmt.Sprintf("%d movements as %s", e.selectedTotal, e.selectedRole)
		bodyOp := &text.DrawOptions{}
		bodyOp.GeoM.Translate(bx+5, dy+spacing)
		bodyOp.ColorScale.Scale(1, 1, 1, 0.8)
		text.Draw(screen, body, face, bodyOp)
	}

	if e.currentSong != "" {
		label := e.currentSong
		if e.currentArtist != "" {
			label = e.currentSong + " - " + e.currentArtist
		}
		npOp := &text.DrawOptions{}
		npOp.GeoM.Translate(margin, float64(e.Height)-margin)
		npOp.ColorScale.Scale(1, 1, 1, 0.4)
		text.Draw(screen, "NOW PLAYING: "+label, titleFace, npOp)
	}

	e.drawLegend(screen, face, margin, fontSize)
}

func (e *Engine) drawBox(screen *ebiten.Image, x, y, w, h, fontSize float64) {
	vector.DrawFilledRect(screen, float32(x-10), float32(y-fontSize-15), float32(w), float32(h), color.RGBA{0, 0, 0, 100}, false)
	vector.StrokeRect(screen, float32(x-10), float32(y-fontSize-15), float32(w), float32(h), 1, colorOutline, false)
	vector.DrawFilledRect(screen, float32(x-10), float32(y-fontSize-15), 4, float32(fontSize+10), colorBubble, false)
}

func (e *Engine) drawBoxTitle(screen *ebiten.Image, title string, face *text.GoTextFace, x, y, fontSize float64) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x+5, y-fontSize-5)
	op.ColorScale.Scale(1, 1, 1, 0.5)
	text.Draw(screen, title, face, op)
}

func (e *Engine) drawLegend(screen *ebiten.Image, face *text.GoTextFace, margin, fontSize float64) {
	items := []struct {
		label string
		col   color.RGBA
	}{
		{"Departing", DotColor(0)},
		{"In transit", DotColor(0.5)},
		{"Arriving", DotColor(1)},
	}
	lx := float64(e.Width) - margin - 220
	ly := float64(e.Height) - margin - float64(len(items))*(fontSize+10)
	for i, it := range items {
		y := ly + float64(i)*(fontSize+10)
		vector.DrawFilledCircle(screen, float32(lx), float32(y+fontSize/2), float32(fontSize/3), it.col, true)
		op := &text.DrawOptions{}
		op.GeoM.Translate(lx+fontSize, y)
		op.ColorScale.Scale(1, 1, 1, 0.8)
		text.Draw(screen, it.label, face, op)
	}
}
