package pipeline

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/wegman-software/tilegen-go/internal/tile"
)

// FeatureKind discriminates the geometry class of a rendered feature
type FeatureKind int

const (
	KindPoint FeatureKind = iota
	KindLine
	KindPolygon
)

func (k FeatureKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	}
	return "unknown"
}

// Feature is one rendered element handed to the sink. The geometry has
// already round-tripped through the store's geometry cache.
type Feature struct {
	ID       int64
	Kind     FeatureKind
	Geometry orb.Geometry
}

// Sink receives finished tiles. Implementations must be safe for
// concurrent WriteTile calls from multiple render workers.
type Sink interface {
	WriteTile(t tile.Tile, features []Feature) error
	Close() error
}

// RenderStats summarizes a completed render run
type RenderStats struct {
	TilesRendered    int64
	Points           int64
	Lines            int64
	Polygons         int64
	SkippedRelations int64 // Relations whose ring assembly produced nothing
	Duration         time.Duration
}
