package flowengine

// CountryAggregate is the per-country bubble datum: summed movement volume
// plus a representative map position. Aggregates are derived on demand and
// never survive a selection change.
type CountryAggregate struct {
	Country             string
	TotalCount          int
	RepresentativePoint Point
}

// OriginIndex maps a country to the running sum of origin coordinates over
// every edge where it appears as the origin. Built once at ingestion and
// extended incrementally as the live feed appends edges, it replaces the
// per-country linear scan the aggregation would otherwise repeat.
type OriginIndex struct {
	sums   map[string]Point
	counts map[string]int
}

// NewOriginIndex builds the index over an edge set.
func NewOriginIndex(edges []*MovementEdge) *OriginIndex {
	ix := &OriginIndex{
		sums:   make(map[string]Point),
		counts: make(map[string]int),
	}
	for _, e := range edges {
		ix.Add(e)
	}
	return ix
}

// Add extends the index with one edge's origin coordinates.
func (ix *OriginIndex) Add(e *MovementEdge) {
	s := ix.sums[e.OriginCountry]
	s.Lon += e.OriginPoint.Lon
	s.Lat += e.OriginPoint.Lat
	ix.sums[e.OriginCountry] = s
	ix.counts[e.OriginCountry]++
}

// Mean returns the average origin coordinate for a country. Countries that
// never appear as an origin fall back to (0, 0).
func (ix *OriginIndex) Mean(country string) Point {
	n := ix.counts[country]
	if n == 0 {
		return Point{}
	}
	s := ix.sums[country]
	return Point{Lon: s.Lon / float64(n), Lat: s.Lat / float64(n)}
}

// AggregateGlobal groups edges by origin country, in first-seen order. The
// representative point is the origin coordinate of the first edge seen for
// that country. Countries appearing only as destinations are absent from the
// result; that asymmetry is deliberate and documented.
func AggregateGlobal(edges []*MovementEdge) []CountryAggregate {
	index := make(map[string]int, len(edges))
	var out []CountryAggregate
	for _, e := range edges {
		i, ok := index[e.OriginCountry]
		if !ok {
			i = len(out)
			index[e.OriginCountry] = i
			out = append(out, CountryAggregate{
				Country:             e.OriginCountry,
				RepresentativePoint: e.OriginPoint,
			})
		}
		out[i].TotalCount += e.Count
	}
	return out
}

// AggregateBidirectional filters to edges touching the selected country in
// either role, then accumulates totals for every country appearing in the
// filtered set — a country collects count from both directions. Ordering is
// first-seen during traversal, origin before destination within an edge.
// Representative points come from the origin index over the full edge set;
// if origins is nil the index is built on the spot.
func AggregateBidirectional(edges []*MovementEdge, selected string, origins *OriginIndex) []CountryAggregate {
	if origins == nil {
		origins = NewOriginIndex(edges)
	}
	index := make(map[string]int)
	var out []CountryAggregate
	accumulate := func(country string, count int) {
		i, ok := index[country]
		if !ok {
			i = len(out)
			index[country] = i
			out = append(out, CountryAggregate{
				Country:             country,
				RepresentativePoint: origins.Mean(country),
			})
		}
		out[i].TotalCount += count
	}
	for _, e := range edges {
		if e.OriginCountry != selected && e.DestinationCountry != selected {
			continue
		}
		accumulate(e.OriginCountry, e.Count)
		accumulate(e.DestinationCountry, e.Count)
	}
	return out
}

// AggregateForSelection is the selection-driven aggregation entry point. It
// currently delegates to AggregateBidirectional for both roles; it stays a
// distinct operation so a future destination-weighted mode can diverge
// without touching callers.
func AggregateForSelection(edges []*MovementEdge, selected string, origins *OriginIndex) []CountryAggregate {
	return AggregateBidirectional(edges, selected, origins)
}
