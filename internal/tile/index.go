package tile

import "sync"

// Entry lists the store entities whose geometry touches one tile.
// IDs are raw store identifiers; the pipeline resolves them.
type Entry struct {
	Nodes     []int64
	Ways      []int64
	Relations []int64
}

// Index bins entities into tiles at a single zoom level. The loader
// fills it during the load phase; render workers read it afterwards.
type Index struct {
	Zoom int

	mu    sync.Mutex
	tiles map[Tile]*Entry
}

// NewIndex creates an empty index for the given zoom level.
func NewIndex(zoom int) *Index {
	return &Index{Zoom: zoom, tiles: make(map[Tile]*Entry)}
}

func (i *Index) entry(t Tile) *Entry {
	e, ok := i.tiles[t]
	if !ok {
		e = &Entry{}
		i.tiles[t] = e
	}
	return e
}

// AddNode records a node in its containing tile.
func (i *Index) AddNode(lat, lon float64, id int64) {
	t := LatLonToTile(lat, lon, i.Zoom)
	i.mu.Lock()
	e := i.entry(t)
	e.Nodes = append(e.Nodes, id)
	i.mu.Unlock()
}

// AddWay records a way in every tile its bounding box covers.
func (i *Index) AddWay(bbox BBox, id int64) {
	i.addCovering(bbox, func(e *Entry) {
		e.Ways = append(e.Ways, id)
	})
}

// AddRelation records a relation in every tile its bounding box covers.
func (i *Index) AddRelation(bbox BBox, id int64) {
	i.addCovering(bbox, func(e *Entry) {
		e.Relations = append(e.Relations, id)
	})
}

func (i *Index) addCovering(bbox BBox, add func(*Entry)) {
	if !bbox.IsValid() {
		return
	}
	r := BBoxToRange(bbox, i.Zoom)
	i.mu.Lock()
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			add(i.entry(Tile{Z: i.Zoom, X: x, Y: y}))
		}
	}
	i.mu.Unlock()
}

// Tiles returns every non-empty tile.
func (i *Index) Tiles() []Tile {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Tile, 0, len(i.tiles))
	for t := range i.tiles {
		out = append(out, t)
	}
	return out
}

// Entry returns the entity lists for a tile, or nil if the tile is
// empty.
func (i *Index) Entry(t Tile) *Entry {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tiles[t]
}

// Len returns the number of non-empty tiles.
func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.tiles)
}
