package flowengine

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// ErrDegeneratePath marks an edge whose path cannot be sampled: non-finite
// endpoints or zero length. The tick loop drops that edge's dots for the
// frame and moves on.
var ErrDegeneratePath = errors.New("degenerate edge path")

// GeoService projects geographic coordinates onto the screen using a
// Mollweide projection centered on the prime meridian.
type GeoService struct {
	width, height int
	scale         float64
}

func NewGeoService(width, height int, scale float64) *GeoService {
	return &GeoService{width: width, height: height, scale: scale}
}

// Project maps (lat, lng) in degrees to screen pixels. Latitudes are
// clamped short of the poles where the Mollweide iteration degenerates.
func (g *GeoService) Project(lat, lng float64) (x, y float64) {
	if lat > 89.5 {
		lat = 89.5
	}
	if lat < -89.5 {
		lat = -89.5
	}

	latRad, lngRad := lat*math.Pi/180, lng*math.Pi/180
	theta := latRad
	for i := 0; i < 10; i++ {
		denom := 2 + 2*math.Cos(2*theta)
		if math.Abs(denom) < 1e-9 {
			break
		}
		delta := (2*theta + math.Sin(2*theta) - math.Pi*math.Sin(latRad)) / denom
		theta -= delta
		if math.Abs(delta) < 1e-7 {
			break
		}
	}
	r := g.scale
	x = (float64(g.width) / 2) + r*(2*math.Sqrt(2)/math.Pi)*lngRad*math.Cos(theta)
	y = (float64(g.height) / 2) - r*math.Sqrt(2)*math.Sin(theta)
	return x, y
}

// GreatCircleSampler interpolates along the great circle between an edge's
// endpoints by spherical linear interpolation. Exact at both endpoints:
// t=0 is the origin, t=1 the destination.
type GreatCircleSampler struct{}

func (GreatCircleSampler) Sample(e *MovementEdge, t float64) (Point, error) {
	o, d := e.OriginPoint, e.DestinationPoint
	if !o.Finite() || !d.Finite() {
		return Point{}, ErrDegeneratePath
	}
	dist := geo.Distance(orb.Point{o.Lon, o.Lat}, orb.Point{d.Lon, d.Lat})
	angle := dist / orb.EarthRadius
	if angle == 0 || math.IsNaN(angle) {
		return Point{}, ErrDegeneratePath
	}

	a := toUnitVector(o)
	b := toUnitVector(d)
	sinAngle := math.Sin(angle)
	if math.Abs(sinAngle) < 1e-12 {
		// Antipodal or coincident after rounding; no unique arc.
		return Point{}, ErrDegeneratePath
	}
	wa := math.Sin((1-t)*angle) / sinAngle
	wb := math.Sin(t*angle) / sinAngle
	v := [3]float64{
		wa*a[0] + wb*b[0],
		wa*a[1] + wb*b[1],
		wa*a[2] + wb*b[2],
	}
	return fromUnitVector(v), nil
}

// StraightLineSampler interpolates linearly in lon/lat space. Useful for
// flat-map rendering and deterministic tests; no geodesic correction.
type StraightLineSampler struct{}

func (StraightLineSampler) Sample(e *MovementEdge, t float64) (Point, error) {
	o, d := e.OriginPoint, e.DestinationPoint
	if !o.Finite() || !d.Finite() {
		return Point{}, ErrDegeneratePath
	}
	if o == d {
		return Point{}, ErrDegeneratePath
	}
	return Point{
		Lon: o.Lon + (d.Lon-o.Lon)*t,
		Lat: o.Lat + (d.Lat-o.Lat)*t,
	}, nil
}

func toUnitVector(p Point) [3]float64 {
	latRad := p.Lat * math.Pi / 180
	lonRad := p.Lon * math.Pi / 180
	return [3]float64{
		math.Cos(latRad) * math.Cos(lonRad),
		math.Cos(latRad) * math.Sin(lonRad),
		math.Sin(latRad),
	}
}

func fromUnitVector(v [3]float64) Point {
	lat := math.Atan2(v[2], math.Sqrt(v[0]*v[0]+v[1]*v[1]))
	lon := math.Atan2(v[1], v[0])
	return Point{Lon: lon * 180 / math.Pi, Lat: lat * 180 / math.Pi}
}
