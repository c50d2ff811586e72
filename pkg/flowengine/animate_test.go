package flowengine

import (
	"errors"
	"math"
	"testing"
)

// midpointSampler always returns the lon/lat midpoint, enough to verify
// plumbing without geometry.
type midpointSampler struct{}

func (midpointSampler) Sample(e *MovementEdge, t float64) (Point, error) {
	return Point{
		Lon: (e.OriginPoint.Lon + e.DestinationPoint.Lon) / 2,
		Lat: (e.OriginPoint.Lat + e.DestinationPoint.Lat) / 2,
	}, nil
}

type failingSampler struct{ failFor string }

func (s failingSampler) Sample(e *MovementEdge, t float64) (Point, error) {
	if e.OriginCountry == s.failFor {
		return Point{}, errors.New("bad path")
	}
	return midpointSampler{}.Sample(e, t)
}

func animTestSetup(speeds ...float64) ([]*MovementEdge, []*EdgeAnimationState) {
	var edges []*MovementEdge
	var states []*EdgeAnimationState
	for i, sp := range speeds {
		e := edge("A", "B", 10, Point{0, 0}, Point{10, 10})
		if i == 1 {
			e = edge("C", "D", 10, Point{0, 0}, Point{10, 10})
		}
		e.Speed = sp
		edges = append(edges, e)
		states = append(states, &EdgeAnimationState{})
	}
	return edges, states
}

func TestTickAdvancesProgressOncePerTick(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinimumDots = 3 // more dots than one must not mean more advancement
	edges, states := animTestSetup(0.25)

	TickEdges(edges, states, Selection{}, cfg, midpointSampler{})
	if states[0].Progress != 0.25 {
		t.Errorf("Progress after one tick = %f, want 0.25", states[0].Progress)
	}
	TickEdges(edges, states, Selection{}, cfg, midpointSampler{})
	if states[0].Progress != 0.5 {
		t.Errorf("Progress after two ticks = %f, want 0.5", states[0].Progress)
	}
}

func TestTickWrapBoundaryQuirk(t *testing.T) {
	cfg := DefaultConfig()
	edges, states := animTestSetup(0.5)
	states[0].Progress = 0.5

	// 0.5 + 0.5 == 1.0 exactly: the wrap condition is strictly > 1, so the
	// value survives as 1.0 until the next advance.
	TickEdges(edges, states, Selection{}, cfg, midpointSampler{})
	if states[0].Progress != 1.0 {
		t.Errorf("Progress = %f, want exactly 1.0 (no wrap at the boundary)", states[0].Progress)
	}

	// The next tick takes it to 1.5 which wraps to 0.5.
	TickEdges(edges, states, Selection{}, cfg, midpointSampler{})
	if math.Abs(states[0].Progress-0.5) > 1e-12 {
		t.Errorf("Progress after wrap = %f, want 0.5", states[0].Progress)
	}
}

func TestTickFreezesHiddenEdges(t *testing.T) {
	cfg := DefaultConfig()
	edges, states := animTestSetup(0.1, 0.1)
	states[1].Progress = 0.7

	sel := Selection{Role: RoleOrigin, Country: "A"}
	pts := TickEdges(edges, states, sel, cfg, midpointSampler{})

	if states[0].Progress != 0.1 {
		t.Errorf("Visible edge should advance, got %f", states[0].Progress)
	}
	if states[1].Progress != 0.7 {
		t.Errorf("Hidden edge progress must be frozen, got %f", states[1].Progress)
	}
	if len(pts) != DotCount(edges[0].Count, cfg) {
		t.Errorf("Expected %d points from the single visible edge, got %d",
			DotCount(edges[0].Count, cfg), len(pts))
	}
}

func TestTickSelectionMatchesEitherRole(t *testing.T) {
	cfg := DefaultConfig()
	edges := []*MovementEdge{
		edge("A", "B", 10, Point{0, 0}, Point{1, 1}),
		edge("B", "C", 10, Point{1, 1}, Point{2, 2}),
		edge("C", "D", 10, Point{2, 2}, Point{3, 3}),
	}
	for i := range edges {
		edges[i].Speed = 0.1
	}
	states := []*EdgeAnimationState{{}, {}, {}}

	// Selecting B (either role) shows edges 0 and 1, freezes edge 2.
	for _, role := range []SelectionRole{RoleOrigin, RoleDestination} {
		for _, st := range states {
			st.Progress = 0
		}
		TickEdges(edges, states, Selection{Role: role, Country: "B"}, cfg, midpointSampler{})
		if states[0].Progress == 0 || states[1].Progress == 0 {
			t.Errorf("role %v: edges touching B should advance", role)
		}
		if states[2].Progress != 0 {
			t.Errorf("role %v: edge not touching B should be frozen", role)
		}
	}
}

func TestDotCount(t *testing.T) {
	tests := []struct {
		count  int
		factor float64
		min    int
		want   int
	}{
		{200, 100, 1, 2}, // ceil(200/100)
		{201, 100, 1, 3},
		{10, 100, 1, 1},  // floor raised to minimum
		{0, 100, 2, 2},
		{100, 100, 1, 1},
	}
	for _, tt := range tests {
		cfg := Config{DotCountFactor: tt.factor, MinimumDots: tt.min}
		if got := DotCount(tt.count, cfg); got != tt.want {
			t.Errorf("DotCount(%d, factor=%v, min=%d) = %d, want %d",
				tt.count, tt.factor, tt.min, got, tt.want)
		}
	}
}

func TestTickDotSpacing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DotSpacing = 0.25
	edges := []*MovementEdge{edge("A", "B", 200, Point{0, 0}, Point{1, 1})}
	edges[0].Speed = 0.01
	states := []*EdgeAnimationState{{Progress: 0.9}}

	pts := TickEdges(edges, states, Selection{}, cfg, midpointSampler{})
	if len(pts) != 2 {
		t.Fatalf("Expected 2 dots (count 200, factor 100), got %d", len(pts))
	}
	if math.Abs(pts[0].Proximity-0.9) > 1e-12 {
		t.Errorf("First dot proximity = %f, want 0.9", pts[0].Proximity)
	}
	// Second dot wraps: 0.9 + 0.25 = 1.15 -> 0.15.
	if math.Abs(pts[1].Proximity-0.15) > 1e-9 {
		t.Errorf("Second dot proximity = %f, want 0.15", pts[1].Proximity)
	}
}

func TestTickSamplerFailureDropsOnlyThatEdge(t *testing.T) {
	cfg := DefaultConfig()
	edges, states := animTestSetup(0.1, 0.1)

	pts := TickEdges(edges, states, Selection{}, cfg, failingSampler{failFor: "A"})
	if len(pts) != DotCount(edges[1].Count, cfg) {
		t.Errorf("Expected only the healthy edge's dots, got %d", len(pts))
	}
	// The failed edge still advances; a broken path pauses dots, not time.
	if states[0].Progress != 0.1 {
		t.Errorf("Failed edge should still advance, got %f", states[0].Progress)
	}
}

func TestDotColorGradient(t *testing.T) {
	start := DotColor(0)
	if start.R != 255 || start.G != 0 {
		t.Errorf("Departure color = %v, want pure red", start)
	}
	end := DotColor(1)
	if end.R != 0 || end.G != 255 {
		t.Errorf("Arrival color = %v, want pure green", end)
	}
	mid := DotColor(0.5)
	if mid.R == 0 || mid.G == 0 {
		t.Errorf("Midpoint color = %v, want a red/green blend", mid)
	}
	if c := DotColor(math.NaN()); c.A != 255 {
		t.Errorf("NaN proximity should still produce an opaque color, got %v", c)
	}
}

func BenchmarkTickEdges(b *testing.B) {
	cfg := DefaultConfig()
	var edges []*MovementEdge
	var states []*EdgeAnimationState
	for i := 0; i < 1000; i++ {
		e := edge("A", "B", (i%50)*10, Point{0, 0}, Point{10, 10})
		e.Speed = 0.002
		edges = append(edges, e)
		states = append(states, &EdgeAnimationState{})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		TickEdges(edges, states, Selection{}, cfg, midpointSampler{})
	}
}
