// Package flowengine implements the movement-data aggregation and
// animation-state core behind the migration globe: ingestion of raw rows
// into a directed edge set, per-country aggregation under selection filters,
// and a deterministic per-tick animation state machine producing render
// points for a display sink.
package flowengine

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// RowRecord is one raw tabular row, already split into named string fields
// by an external parser (CSV reader, feed decoder).
type RowRecord = map[string]string

// Field names recognized in a RowRecord.
const (
	FieldCountryFrom   = "country_from"
	FieldCountryTo     = "country_to"
	FieldLongitudeFrom = "longitude_from"
	FieldLatitudeFrom  = "latitude_from"
	FieldLongitudeTo   = "longitude_to"
	FieldLatitudeTo    = "latitude_to"
	FieldMovementCount = "movement_count"
)

// ErrEmptyDataset is returned when ingestion receives no rows, or every row
// was dropped by the data-quality filter.
var ErrEmptyDataset = errors.New("movement dataset is empty")

// Point is a geographic position in (longitude, latitude) order.
type Point struct {
	Lon, Lat float64
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0) &&
		!math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0)
}

// MovementEdge is one directed movement record between two countries.
// Immutable once built: the tick loop only ever mutates the paired
// EdgeAnimationState.
type MovementEdge struct {
	OriginCountry      string
	DestinationCountry string
	OriginPoint        Point
	DestinationPoint   Point
	Count              int
	Speed              float64
}

// EdgeAnimationState carries the fractional dot position for one edge.
// Progress stays in [0,1) except transiently between advance and wrap.
type EdgeAnimationState struct {
	Progress float64
}

// Config holds the recognized animation options.
type Config struct {
	// DotAnimationSpeed is the base per-tick progress increment before the
	// volume bonus is applied.
	DotAnimationSpeed float64
	// DotSpacing is the progress offset between consecutive dots on an edge.
	DotSpacing float64
	// MinimumDots is the floor on dots sampled per edge per tick.
	MinimumDots int
	// DotCountFactor divides the movement count to derive the dot count.
	DotCountFactor float64
}

func DefaultConfig() Config {
	return Config{
		DotAnimationSpeed: 0.002,
		DotSpacing:        0.06,
		MinimumDots:       1,
		DotCountFactor:    100,
	}
}

// EdgeSpeed derives the per-tick progress increment for an edge. The speed
// grows with movement volume and is computed once at ingestion, never
// recomputed.
func EdgeSpeed(base float64, count int) float64 {
	return base * (1 + float64(count)/50)
}

// BuildEdges converts raw rows into movement edges paired 1:1 with fresh
// animation states, preserving input order.
//
// Rows missing either country are silently dropped; that is a data-quality
// filter, not an error. Malformed coordinate fields propagate as NaN rather
// than rejecting the row. A malformed movement count becomes zero (Go
// integers have no NaN to carry; see DESIGN.md). If the normalizer is
// non-nil, country fields are canonicalized through it before the
// missing-country check.
//
// An empty input, or one that drops every row, returns ErrEmptyDataset.
func BuildEdges(rows []RowRecord, cfg Config, norm *CountryMatcher) ([]*MovementEdge, []*EdgeAnimationState, error) {
	edges := make([]*MovementEdge, 0, len(rows))
	states := make([]*EdgeAnimationState, 0, len(rows))
	for _, row := range rows {
		from := strings.TrimSpace(row[FieldCountryFrom])
		to := strings.TrimSpace(row[FieldCountryTo])
		if norm != nil {
			from = norm.Normalize(from)
			to = norm.Normalize(to)
		}
		if from == "" || to == "" {
			continue
		}
		count := parseCount(row[FieldMovementCount])
		edges = append(edges, &MovementEdge{
			OriginCountry:      from,
			DestinationCountry: to,
			OriginPoint: Point{
				Lon: parseCoord(row[FieldLongitudeFrom]),
				Lat: parseCoord(row[FieldLatitudeFrom]),
			},
			DestinationPoint: Point{
				Lon: parseCoord(row[FieldLongitudeTo]),
				Lat: parseCoord(row[FieldLatitudeTo]),
			},
			Count: count,
			Speed: EdgeSpeed(cfg.DotAnimationSpeed, count),
		})
		states = append(states, &EdgeAnimationState{})
	}
	if len(edges) == 0 {
		return nil, nil, ErrEmptyDataset
	}
	return edges, states, nil
}

func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func parseCount(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
