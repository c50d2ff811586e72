package flowengine

// MovingPointSink receives the full dot set each tick.
type MovingPointSink interface {
	SetMovingPoints([]RenderPoint)
}

// MarkerSink receives the full bubble set whenever it is (re)published.
type MarkerSink interface {
	SetMarkers([]CountryAggregate)
}

// SelectionListener is notified of selection changes for panel population:
// the selected country, its role, and its total movement volume under the
// new aggregation. A cleared selection reports an empty country.
type SelectionListener func(country string, role SelectionRole, total int)

// Session owns one animation's complete mutable state: the authoritative
// edge set, the per-edge animation states, the active selection, and the
// cached aggregates. All calls share a single-threaded timeline — the
// display loop drives Tick, and selection changes are ordered against ticks
// by the same loop. Nothing here locks.
type Session struct {
	cfg     Config
	sampler PathSampler

	edges   []*MovementEdge
	states  []*EdgeAnimationState
	origins *OriginIndex

	selection  Selection
	aggregates []CountryAggregate // nil = invalidated, recompute on demand

	generation uint64

	points      MovingPointSink
	markers     MarkerSink
	onSelection SelectionListener
}

// NewSession creates an empty session. Edges arrive later via a
// BeginIngest/CompleteIngest pair or Append.
func NewSession(cfg Config, sampler PathSampler) *Session {
	return &Session{cfg: cfg, sampler: sampler}
}

// SetSinks attaches the rendering sinks. Either may be nil.
func (s *Session) SetSinks(points MovingPointSink, markers MarkerSink) {
	s.points = points
	s.markers = markers
}

// OnSelectionChange registers the panel listener.
func (s *Session) OnSelectionChange(fn SelectionListener) {
	s.onSelection = fn
}

// Config returns the animation options the session was built with.
func (s *Session) Config() Config { return s.cfg }

// BeginIngest opens a new ingestion attempt and returns its generation
// token. Starting another attempt supersedes this one: its CompleteIngest
// will be discarded. This is how a stale fetch loses the race to a newer
// one without locks.
func (s *Session) BeginIngest() uint64 {
	s.generation++
	return s.generation
}

// CompleteIngest installs a freshly built edge set if the generation is
// still current. Superseded results are dropped and reported false.
// Installing a new edge set resets all animation and selection state: the
// previous session data described a dataset that no longer exists.
func (s *Session) CompleteIngest(generation uint64, edges []*MovementEdge, states []*EdgeAnimationState) bool {
	if generation != s.generation {
		return false
	}
	s.edges = edges
	s.states = states
	s.origins = NewOriginIndex(edges)
	s.selection = Selection{}
	s.aggregates = nil
	return true
}

// Append adds live-feed edges to the authoritative set, extending the
// origin index incrementally. Aggregates are invalidated; animation states
// of existing edges are untouched.
func (s *Session) Append(edges []*MovementEdge, states []*EdgeAnimationState) {
	if len(edges) == 0 {
		return
	}
	s.edges = append(s.edges, edges...)
	s.states = append(s.states, states...)
	if s.origins == nil {
		s.origins = NewOriginIndex(nil)
	}
	for _, e := range edges {
		s.origins.Add(e)
	}
	s.aggregates = nil
}

// Ready reports whether an edge set has been installed.
func (s *Session) Ready() bool { return len(s.edges) > 0 }

// EdgeCount returns the size of the authoritative edge set.
func (s *Session) EdgeCount() int { return len(s.edges) }

// Selection returns the active selection.
func (s *Session) Selection() Selection { return s.selection }

// Select focuses a country in the given role. The visible-edge predicate
// changes immediately, aggregates are recomputed, and the next Tick pushes
// the new dots and bubbles to the sinks together. Animation progress is
// never reset by a selection change: dots continue from where they were.
func (s *Session) Select(country string, role SelectionRole) {
	if role == RoleNone || country == "" {
		s.Clear()
		return
	}
	s.selection = Selection{Role: role, Country: country}
	s.aggregates = nil
	refreshed := s.Aggregates()
	if s.onSelection != nil {
		total := 0
		for _, a := range refreshed {
			if a.Country == country {
				total = a.TotalCount
				break
			}
		}
		s.onSelection(country, role, total)
	}
}

// Clear drops the selection, restoring the global view.
func (s *Session) Clear() {
	s.selection = Selection{}
	s.aggregates = nil
	s.Aggregates()
	if s.onSelection != nil {
		s.onSelection("", RoleNone, 0)
	}
}

// Aggregates returns the bubble set for the active selection, recomputing
// it if a selection change or edge append invalidated the cache. A selected
// country with no matching edges yields an empty set, not an error.
func (s *Session) Aggregates() []CountryAggregate {
	if s.aggregates != nil {
		return s.aggregates
	}
	if len(s.edges) == 0 {
		return nil
	}
	if s.selection.Active() {
		s.aggregates = AggregateForSelection(s.edges, s.selection.Country, s.origins)
	} else {
		s.aggregates = AggregateGlobal(s.edges)
	}
	if s.aggregates == nil {
		s.aggregates = []CountryAggregate{}
	}
	return s.aggregates
}

// Tick advances the animation one frame and pushes dots and bubbles to the
// sinks in the same call, so a renderer never observes aggregates from one
// selection paired with dots from another. Returns the dots for callers
// that consume them directly. Before ingestion completes, Tick does
// nothing.
func (s *Session) Tick() []RenderPoint {
	if !s.Ready() {
		return nil
	}
	pts := TickEdges(s.edges, s.states, s.selection, s.cfg, s.sampler)
	aggs := s.Aggregates()
	if s.points != nil {
		s.points.SetMovingPoints(pts)
	}
	if s.markers != nil {
		s.markers.SetMarkers(aggs)
	}
	return pts
}
