// Package script embeds a Lua interpreter over the store so ad hoc
// inspection and filtering can run without recompiling.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wegman-software/tilegen-go/internal/logger"
	"github.com/wegman-software/tilegen-go/internal/store"
)

// Runtime manages the Lua interpreter and the tilegen API
type Runtime struct {
	L  *lua.LState
	st *store.Store
}

// NewRuntime creates a Lua runtime bound to a loaded store
func NewRuntime(st *store.Store) *Runtime {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	r := &Runtime{L: L, st: st}
	r.registerAPI()
	return r
}

// Close releases Lua resources
func (r *Runtime) Close() {
	r.L.Close()
}

// registerAPI installs the tilegen module table
func (r *Runtime) registerAPI() {
	tilegen := r.L.NewTable()

	tilegen.RawSetString("version", lua.LString("1.0.0"))

	r.L.SetField(tilegen, "node", r.L.NewFunction(r.luaNode))
	r.L.SetField(tilegen, "way", r.L.NewFunction(r.luaWay))
	r.L.SetField(tilegen, "relation", r.L.NewFunction(r.luaRelation))
	r.L.SetField(tilegen, "linestring", r.L.NewFunction(r.luaLineString))
	r.L.SetField(tilegen, "multipolygon", r.L.NewFunction(r.luaMultiPolygon))
	r.L.SetField(tilegen, "stats", r.L.NewFunction(r.luaStats))
	r.L.SetField(tilegen, "report", r.L.NewFunction(r.luaReport))

	r.L.SetGlobal("tilegen", tilegen)
}

// RunFile loads and executes a Lua script file
func (r *Runtime) RunFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to run Lua file: %w", err)
	}
	return nil
}

// RunString executes Lua code from a string (for testing)
func (r *Runtime) RunString(code string) error {
	if err := r.L.DoString(code); err != nil {
		return fmt.Errorf("failed to run Lua code: %w", err)
	}
	return nil
}

// luaNode implements tilegen.node(id). Returns a table with lat and
// lon, or nil when the node is absent.
func (r *Runtime) luaNode(L *lua.LState) int {
	id := store.NodeID(L.CheckInt64(1))

	coord, err := r.st.NodeAt(id)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}

	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LNumber(id))
	tbl.RawSetString("lat", lua.LNumber(coord.Lat()))
	tbl.RawSetString("lon", lua.LNumber(coord.Point()[0]))
	L.Push(tbl)
	return 1
}

// luaWay implements tilegen.way(id). Returns a table with the node ID
// list and a closed flag, or nil when the way is absent.
func (r *Runtime) luaWay(L *lua.LState) int {
	id := store.WayID(L.CheckInt64(1))

	way, err := r.st.WayAt(id)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}

	nodes := L.NewTable()
	for i, nid := range way.IDs() {
		nodes.RawSetInt(i+1, lua.LNumber(nid))
	}

	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LNumber(id))
	tbl.RawSetString("nodes", nodes)
	tbl.RawSetString("is_closed", lua.LBool(way.Closed()))
	L.Push(tbl)
	return 1
}

// luaRelation implements tilegen.relation(id). Returns a table with
// outer and inner way ID lists, or nil when the relation is absent.
func (r *Runtime) luaRelation(L *lua.LState) int {
	id := store.WayID(L.CheckInt64(1))

	rel, err := r.st.RelationAt(id)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}

	outer := L.NewTable()
	for i, wid := range rel.Outer().IDs() {
		outer.RawSetInt(i+1, lua.LNumber(wid))
	}
	inner := L.NewTable()
	for i, wid := range rel.Inner().IDs() {
		inner.RawSetInt(i+1, lua.LNumber(wid))
	}

	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LNumber(id))
	tbl.RawSetString("outer", outer)
	tbl.RawSetString("inner", inner)
	L.Push(tbl)
	return 1
}

// luaLineString implements tilegen.linestring(way_id). Returns the
// way's coordinates as an array of {lon, lat} pairs.
func (r *Runtime) luaLineString(L *lua.LState) int {
	id := store.WayID(L.CheckInt64(1))

	ls, err := r.st.WayLineString(id)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}

	coords := L.NewTable()
	for i, p := range ls {
		pair := L.NewTable()
		pair.RawSetInt(1, lua.LNumber(p[0]))
		pair.RawSetInt(2, lua.LNumber(p[1]))
		coords.RawSetInt(i+1, pair)
	}
	L.Push(coords)
	return 1
}

// luaMultiPolygon implements tilegen.multipolygon(relation_id).
// Assembles the relation's rings and returns nested coordinate
// tables (polygon > ring > point), or nil on assembly failure.
func (r *Runtime) luaMultiPolygon(L *lua.LState) int {
	id := store.WayID(L.CheckInt64(1))

	rel, err := r.st.RelationAt(id)
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}

	mp, err := r.st.RelationMultiPolygon(rel.Outer().IDs(), rel.Inner().IDs(), store.MissingSkip)
	if err != nil || len(mp) == 0 {
		L.Push(lua.LNil)
		return 1
	}

	polys := L.NewTable()
	for i, poly := range mp {
		rings := L.NewTable()
		for j, ring := range poly {
			pts := L.NewTable()
			for k, p := range ring {
				pair := L.NewTable()
				pair.RawSetInt(1, lua.LNumber(p[0]))
				pair.RawSetInt(2, lua.LNumber(p[1]))
				pts.RawSetInt(k+1, pair)
			}
			rings.RawSetInt(j+1, pts)
		}
		polys.RawSetInt(i+1, rings)
	}
	L.Push(polys)
	return 1
}

// luaStats implements tilegen.stats()
func (r *Runtime) luaStats(L *lua.LState) int {
	st := r.st.Stats()

	tbl := L.NewTable()
	tbl.RawSetString("nodes", lua.LNumber(st.Nodes))
	tbl.RawSetString("ways", lua.LNumber(st.Ways))
	tbl.RawSetString("relations", lua.LNumber(st.Relations))
	tbl.RawSetString("arena_capacity", lua.LNumber(st.ArenaCapacity))
	tbl.RawSetString("arena_used", lua.LNumber(st.ArenaUsed))
	L.Push(tbl)
	return 1
}

// luaReport implements tilegen.report(msg), routing script output
// through the structured logger
func (r *Runtime) luaReport(L *lua.LState) int {
	msg := L.CheckString(1)
	logger.Get().Info("Script report", zap.String("msg", msg))
	return 0
}
