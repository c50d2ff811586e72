package flowengine

// SelectionRole identifies which side of an edge a selected country plays.
type SelectionRole int

const (
	RoleNone SelectionRole = iota
	RoleOrigin
	RoleDestination
)

func (r SelectionRole) String() string {
	switch r {
	case RoleOrigin:
		return "origin"
	case RoleDestination:
		return "destination"
	default:
		return "none"
	}
}

// Selection is the single active country focus. The zero value means no
// selection (all edges visible).
type Selection struct {
	Role    SelectionRole
	Country string
}

// Visible reports whether an edge passes the selection filter. A selected
// country matches edges touching it in either role; the origin and
// destination selections differ only in how aggregates are presented, not in
// which edges animate.
func (s Selection) Visible(e *MovementEdge) bool {
	if s.Role == RoleNone {
		return true
	}
	return e.OriginCountry == s.Country || e.DestinationCountry == s.Country
}

// Active reports whether a country is currently selected.
func (s Selection) Active() bool {
	return s.Role != RoleNone
}
