package flowengine

import (
	"image/color"
	"math"
)

// RenderPoint is one positioned, colored dot handed to the moving-points
// sink. Proximity is the dot's fractional position along its edge; color
// fades red to green as the dot nears the destination.
type RenderPoint struct {
	Position  Point
	Proximity float64
	Color     color.RGBA
	Speed     float64
}

// PathSampler maps (edge, t in [0,1]) to a position along the edge's path.
// The core never does path geometry itself; implementations may be straight
// lines, great circles, or anything a test harness needs. An error marks the
// path invalid or degenerate for this edge.
type PathSampler interface {
	Sample(e *MovementEdge, t float64) (Point, error)
}

// TickEdges advances the animation one frame and returns the dots to render.
//
// Only edges visible under the selection participate: hidden edges emit no
// dots and their progress stays frozen until they become visible again.
// Each visible edge advances exactly once per tick regardless of how many
// dots it emitted, and wraps only when progress exceeds 1 — a value of
// exactly 1 survives until the next read, matching the original animation's
// wrap boundary.
//
// A sampler error drops every sample for that edge this tick; other edges
// continue, and the failed edge still advances.
func TickEdges(edges []*MovementEdge, states []*EdgeAnimationState, sel Selection, cfg Config, sampler PathSampler) []RenderPoint {
	points := make([]RenderPoint, 0, len(edges))
	var scratch []RenderPoint
	for i, e := range edges {
		if !sel.Visible(e) {
			continue
		}
		st := states[i]
		n := DotCount(e.Count, cfg)
		scratch = scratch[:0]
		ok := true
		for d := 0; d < n; d++ {
			t := math.Mod(st.Progress+cfg.DotSpacing*float64(d), 1)
			pos, err := sampler.Sample(e, t)
			if err != nil {
				ok = false
				break
			}
			scratch = append(scratch, RenderPoint{
				Position:  pos,
				Proximity: t,
				Color:     DotColor(t),
				Speed:     e.Speed,
			})
		}
		if ok {
			points = append(points, scratch...)
		}
		st.Progress += e.Speed
		if st.Progress > 1 {
			st.Progress = math.Mod(st.Progress, 1)
		}
	}
	return points
}

// DotCount derives how many dots an edge shows per tick.
func DotCount(count int, cfg Config) int {
	n := int(math.Ceil(float64(count) / cfg.DotCountFactor))
	if n < cfg.MinimumDots {
		n = cfg.MinimumDots
	}
	return n
}

// DotColor interpolates red to green by proximity to the destination.
func DotColor(t float64) color.RGBA {
	if t < 0 || math.IsNaN(t) {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return color.RGBA{
		R: uint8(255 * (1 - t)),
		G: uint8(255 * t),
		A: 255,
	}
}
