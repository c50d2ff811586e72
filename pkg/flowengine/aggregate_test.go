package flowengine

import (
	"math"
	"testing"
)

func edge(from, to string, count int, origin, dest Point) *MovementEdge {
	return &MovementEdge{
		OriginCountry:      from,
		DestinationCountry: to,
		OriginPoint:        origin,
		DestinationPoint:   dest,
		Count:              count,
	}
}

func testEdges() []*MovementEdge {
	return []*MovementEdge{
		edge("FR", "US", 100, Point{2, 48}, Point{-74, 40}),
		edge("FR", "DE", 50, Point{4, 46}, Point{13, 52}),
		edge("DE", "FR", 30, Point{13, 52}, Point{2, 48}),
		edge("ES", "MA", 20, Point{-3, 40}, Point{-7, 33}),
	}
}

func TestAggregateGlobalTotalsMatchEdgeSum(t *testing.T) {
	edges := testEdges()
	aggs := AggregateGlobal(edges)

	wantSum := 0
	for _, e := range edges {
		wantSum += e.Count
	}
	gotSum := 0
	for _, a := range aggs {
		gotSum += a.TotalCount
	}
	if gotSum != wantSum {
		t.Errorf("Aggregate sum %d != edge sum %d", gotSum, wantSum)
	}
}

func TestAggregateGlobalFirstSeenOrder(t *testing.T) {
	aggs := AggregateGlobal(testEdges())
	wantOrder := []string{"FR", "DE", "ES"}
	if len(aggs) != len(wantOrder) {
		t.Fatalf("Expected %d aggregates, got %d", len(wantOrder), len(aggs))
	}
	for i, want := range wantOrder {
		if aggs[i].Country != want {
			t.Errorf("Aggregate %d = %s, want %s", i, aggs[i].Country, want)
		}
	}
	// FR's representative point is the first FR edge's origin
	if aggs[0].RepresentativePoint != (Point{2, 48}) {
		t.Errorf("FR representative point = %v, want first-seen origin {2 48}", aggs[0].RepresentativePoint)
	}
	if aggs[0].TotalCount != 150 {
		t.Errorf("FR total = %d, want 150", aggs[0].TotalCount)
	}
}

func TestAggregateGlobalOmitsDestinationOnlyCountries(t *testing.T) {
	// US and MA appear only as destinations; the origin-grouped view skips
	// them on purpose.
	for _, a := range AggregateGlobal(testEdges()) {
		if a.Country == "US" || a.Country == "MA" {
			t.Errorf("Destination-only country %s should be absent from global aggregates", a.Country)
		}
	}
}

func TestAggregateBidirectionalSumsBothRoles(t *testing.T) {
	edges := testEdges()
	aggs := AggregateBidirectional(edges, "FR", nil)

	byCountry := make(map[string]CountryAggregate)
	for _, a := range aggs {
		byCountry[a.Country] = a
	}

	fr, ok := byCountry["FR"]
	if !ok {
		t.Fatal("FR must appear in its own bidirectional aggregates")
	}
	// FR->US 100, FR->DE 50, DE->FR 30: every filtered edge touches FR.
	if fr.TotalCount != 180 {
		t.Errorf("FR total = %d, want 180", fr.TotalCount)
	}

	de, ok := byCountry["DE"]
	if !ok {
		t.Fatal("DE should appear (touches FR in both roles)")
	}
	// FR->DE 50 (as destination) + DE->FR 30 (as origin)
	if de.TotalCount != 80 {
		t.Errorf("DE total = %d, want 80", de.TotalCount)
	}

	if _, ok := byCountry["ES"]; ok {
		t.Error("ES does not touch FR and must be filtered out")
	}
	if _, ok := byCountry["MA"]; ok {
		t.Error("MA does not touch FR and must be filtered out")
	}
}

func TestAggregateBidirectionalRepresentativePoints(t *testing.T) {
	edges := testEdges()
	aggs := AggregateBidirectional(edges, "FR", NewOriginIndex(edges))

	byCountry := make(map[string]CountryAggregate)
	for _, a := range aggs {
		byCountry[a.Country] = a
	}

	// FR appears as origin twice: mean of (2,48) and (4,46).
	fr := byCountry["FR"].RepresentativePoint
	if math.Abs(fr.Lon-3) > 1e-9 || math.Abs(fr.Lat-47) > 1e-9 {
		t.Errorf("FR representative point = %v, want mean {3 47}", fr)
	}

	// US never appears as an origin anywhere: falls back to (0,0).
	us := byCountry["US"].RepresentativePoint
	if us != (Point{}) {
		t.Errorf("US representative point = %v, want fallback {0 0}", us)
	}
}

func TestAggregateBidirectionalNoMatches(t *testing.T) {
	aggs := AggregateBidirectional(testEdges(), "JP", nil)
	if len(aggs) != 0 {
		t.Errorf("Expected empty aggregates for unmatched country, got %d", len(aggs))
	}
}

func TestAggregateForSelectionDelegates(t *testing.T) {
	edges := testEdges()
	ix := NewOriginIndex(edges)
	want := AggregateBidirectional(edges, "DE", ix)
	got := AggregateForSelection(edges, "DE", ix)
	if len(got) != len(want) {
		t.Fatalf("Expected %d aggregates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Aggregate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestOriginIndexIncrementalAdd(t *testing.T) {
	edges := testEdges()
	ix := NewOriginIndex(edges)
	ix.Add(edge("FR", "IT", 10, Point{6, 44}, Point{12, 42}))

	// Mean over three FR origins: (2+4+6)/3, (48+46+44)/3.
	got := ix.Mean("FR")
	if math.Abs(got.Lon-4) > 1e-9 || math.Abs(got.Lat-46) > 1e-9 {
		t.Errorf("FR mean after Add = %v, want {4 46}", got)
	}
}
