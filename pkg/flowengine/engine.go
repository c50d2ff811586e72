package flowengine

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	geojson "github.com/paulmach/go.geojson"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	colorOcean   = color.RGBA{8, 10, 15, 255}
	colorLand    = color.RGBA{26, 29, 35, 255}
	colorOutline = color.RGBA{36, 42, 53, 255}
	colorBubble  = color.RGBA{0, 191, 255, 255}
	colorFocus   = color.RGBA{255, 255, 0, 255}
)

// Engine is the display half of the migration globe: it owns the window
// surface, renders the session's dots and bubbles, and feeds user input back
// into the session. It implements ebiten.Game and both render sinks, so the
// session pushes into it directly.
type Engine struct {
	Width, Height int

	session *Session
	geo     *GeoService
	norm    *CountryMatcher

	bgImage    *ebiten.Image
	fontSource *text.GoTextFaceSource
	monoSource *text.GoTextFaceSource

	dots    []RenderPoint
	bubbles []CountryAggregate

	// bubbleHits caches the projected position and radius of each drawn
	// bubble for mouse hit-testing, rebuilt every Draw.
	bubbleHits []bubbleHit

	pendingRows chan []RowRecord

	selectedCountry string
	selectedRole    SelectionRole
	selectedTotal   int

	currentSong   string
	currentArtist string
}

type bubbleHit struct {
	x, y, r float64
	country string
}

func NewEngine(width, height int, scale float64, session *Session) *Engine {
	s, _ := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	m, _ := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	e := &Engine{
		Width:       width,
		Height:      height,
		session:     session,
		geo:         NewGeoService(width, height, scale),
		fontSource:  s,
		monoSource:  m,
		pendingRows: make(chan []RowRecord, 64),
	}
	session.SetSinks(e, e)
	session.OnSelectionChange(func(country string, role SelectionRole, total int) {
		e.selectedCountry = country
		e.selectedRole = role
		e.selectedTotal = total
	})
	return e
}

// Geo exposes the projection for collaborators (panel drawing, hit tests).
func (e *Engine) Geo() *GeoService { return e.geo }

// SetNormalizer routes live-feed country fields through the same alias
// matcher the initial dataset went through.
func (e *Engine) SetNormalizer(norm *CountryMatcher) { e.norm = norm }

// SetMovingPoints implements MovingPointSink.
func (e *Engine) SetMovingPoints(pts []RenderPoint) { e.dots = pts }

// SetMarkers implements MarkerSink.
func (e *Engine) SetMarkers(aggs []CountryAggregate) { e.bubbles = aggs }

// SetNowPlaying updates the soundtrack line in the panel.
func (e *Engine) SetNowPlaying(song, artist string) {
	e.currentSong, e.currentArtist = song, artist
}

// EnqueueRows hands live-feed rows to the engine. They are folded into the
// session at the top of the next Update, never mid-tick. Safe to call from
// the feed goroutine; a full queue drops the batch rather than blocking the
// feed.
func (e *Engine) EnqueueRows(rows []RowRecord) bool {
	select {
	case e.pendingRows <- rows:
		return true
	default:
		return false
	}
}

// Update runs once per display frame on the game loop goroutine. Ordering
// matters: appended edges and selection changes land before the tick, so
// the tick's dot set and bubble set always describe the same state.
func (e *Engine) Update() error {
	e.drainPendingRows()
	e.handleMouse()
	e.session.Tick()
	return nil
}

func (e *Engine) drainPendingRows() {
	for {
		select {
		case rows := <-e.pendingRows:
			edges, states, err := BuildEdges(rows, e.session.Config(), e.norm)
			if err != nil {
				continue // batch was entirely filtered out
			}
			e.session.Append(edges, states)
		default:
			return
		}
	}
}

func (e *Engine) handleMouse() {
	var role SelectionRole
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		role = RoleOrigin
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight):
		role = RoleDestination
	default:
		return
	}
	mx, my := ebiten.CursorPosition()
	fx, fy := float64(mx), float64(my)
	for _, h := range e.bubbleHits {
		dx, dy := fx-h.x, fy-h.y
		if dx*dx+dy*dy <= h.r*h.r {
			e.session.Select(h.country, role)
			return
		}
	}
	e.session.Clear()
}

func (e *Engine) Draw(screen *ebiten.Image) {
	if e.bgImage != nil {
		screen.DrawImage(e.bgImage, nil)
	} else {
		screen.Fill(colorOcean)
	}
	e.drawBubbles(screen)
	e.drawDots(screen)
	e.drawPanel(screen)
}

func (e *Engine) Layout(w, h int) (int, int) { return e.Width, e.Height }

func (e *Engine) drawBubbles(screen *ebiten.Image) {
	e.bubbleHits = e.bubbleHits[:0]
	sel := e.session.Selection()
	for _, b := range e.bubbles {
		p := b.RepresentativePoint
		if !p.Finite() {
			continue
		}
		x, y := e.geo.Project(p.Lat, p.Lon)
		r := bubbleRadius(b.TotalCount)
		c := colorBubble
		if sel.Active() && b.Country == sel.Country {
			c = colorFocus
		}
		vector.DrawFilledCircle(screen, float32(x), float32(y), float32(r), fade(c, 0.35), true)
		vector.StrokeCircle(screen, float32(x), float32(y), float32(r), 1.5, fade(c, 0.8), true)
		e.bubbleHits = append(e.bubbleHits, bubbleHit{x: x, y: y, r: r, country: b.Country})
	}
}

func (e *Engine) drawDots(screen *ebiten.Image) {
	for _, d := range e.dots {
		if !d.Position.Finite() {
			continue
		}
		x, y := e.geo.Project(d.Position.Lat, d.Position.Lon)
		vector.DrawFilledCircle(screen, float32(x), float32(y), 2.2, d.Color, true)
	}
}

// bubbleRadius scales with log volume, capped so dense hubs stay clickable
// rather than swallowing the map.
func bubbleRadius(total int) float64 {
	if total < 0 {
		total = 0
	}
	r := 6 + math.Log10(float64(total)+1)*7
	if r > 60 {
		r = 60
	}
	return r
}

func fade(c color.RGBA, alpha float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * alpha),
		G: uint8(float64(c.G) * alpha),
		B: uint8(float64(c.B) * alpha),
		A: uint8(255 * alpha),
	}
}

// TopAggregates returns the highest-volume bubbles for the panel list.
func (e *Engine) TopAggregates(n int) []CountryAggregate {
	out := make([]CountryAggregate, len(e.bubbles))
	copy(out, e.bubbles)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalCount > out[j].TotalCount })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// LoadWorldMap rasterizes a GeoJSON feature collection of country polygons
// into the static background image.
func (e *Engine) LoadWorldMap(data []byte) error {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return err
	}
	cpuImg := image.NewRGBA(image.Rect(0, 0, e.Width, e.Height))
	draw.Draw(cpuImg, cpuImg.Bounds(), &image.Uniform{colorOcean}, image.Point{}, draw.Src)
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if f.Geometry.IsPolygon() {
			e.fillPolygon(cpuImg, f.Geometry.Polygon, colorLand)
			for _, ring := range f.Geometry.Polygon {
				e.drawRing(cpuImg, ring, colorOutline)
			}
		} else if f.Geometry.IsMultiPolygon() {
			for _, poly := range f.Geometry.MultiPolygon {
				e.fillPolygon(cpuImg, poly, colorLand)
				for _, ring := range poly {
					e.drawRing(cpuImg, ring, colorOutline)
				}
			}
		}
	}
	e.bgImage = ebiten.NewImageFromImage(cpuImg)
	return nil
}

// fillPolygon scanline-fills a projected polygon (outer ring plus holes).
func (e *Engine) fillPolygon(img *image.RGBA, rings [][][]float64, c color.RGBA) {
	if len(rings) == 0 {
		return
	}
	type pt struct{ x, y float64 }
	projected := make([][]pt, len(rings))
	minY, maxY := float64(e.Height), 0.0
	for i, ring := range rings {
		projected[i] = make([]pt, len(ring))
		for j, p := range ring {
			x, y := e.geo.Project(p[1], p[0])
			projected[i][j] = pt{x, y}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	for y := int(minY); y <= int(maxY); y++ {
		if y < 0 || y >= e.Height {
			continue
		}
		var nodes []int
		fy := float64(y)
		for _, ring := range projected {
			for i := 0; i < len(ring); i++ {
				j := (i + 1) % len(ring)
				if (ring[i].y < fy && ring[j].y >= fy) || (ring[j].y < fy && ring[i].y >= fy) {
					nodeX := ring[i].x + (fy-ring[i].y)/(ring[j].y-ring[i].y)*(ring[j].x-ring[i].x)
					nodes = append(nodes, int(nodeX))
				}
			}
		}
		sort.Ints(nodes)
		for i := 0; i < len(nodes)-1; i += 2 {
			xs, xe := nodes[i], nodes[i+1]
			if xs < 0 {
				xs = 0
			}
			if xe >= e.Width {
				xe = e.Width - 1
			}
			for x := xs; x < xe; x++ {
				off := y*img.Stride + x*4
				img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = c.R, c.G, c.B, 255
			}
		}
	}
}

func (e *Engine) drawRing(img *image.RGBA, coords [][]float64, c color.RGBA) {
	for i := 0; i < len(coords)-1; i++ {
		x1, y1 := e.geo.Project(coords[i][1], coords[i][0])
		x2, y2 := e.geo.Project(coords[i+1][1], coords[i+1][0])
		e.drawLine(img, int(x1), int(y1), int(x2), int(y2), c)
	}
}

func (e *Engine) drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx, dy := math.Abs(float64(x2-x1)), math.Abs(float64(y2-y1))
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		if x1 >= 0 && x1 < e.Width && y1 >= 0 && y1 < e.Height {
			off := y1*img.Stride + x1*4
			img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = c.R, c.G, c.B, 255
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}
