package store

import (
	"errors"
	"testing"
)

func TestDenseNodesContract(t *testing.T) {
	s := newTestStore(t, Options{DenseNodes: true, NodeHint: 100})

	c := MakeCoord(51.5074, -0.1278)
	if err := s.InsertNode(10, c); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}

	got, err := s.NodeAt(10)
	if err != nil {
		t.Fatalf("NodeAt: %v", err)
	}
	if got != c {
		t.Errorf("NodeAt(10) = %v, want %v", got, c)
	}

	// Unset but in-range IDs read the zero sentinel, never NotFound.
	sentinel, err := s.NodeAt(50)
	if err != nil {
		t.Fatalf("NodeAt(unset in-range) = %v, want sentinel", err)
	}
	if !sentinel.IsZero() {
		t.Errorf("unset entry = %v, want zero sentinel", sentinel)
	}

	if !s.NodeCount(10) {
		t.Error("NodeCount(10) = false, want true")
	}
	if s.NodeCount(50) {
		t.Error("NodeCount(unset) = true, want false")
	}
}

func TestDenseNodesRangeErrors(t *testing.T) {
	s := newTestStore(t, Options{DenseNodes: true, NodeHint: 100})

	if err := s.InsertNode(100, MakeCoord(1, 1)); !errors.Is(err, ErrRange) {
		t.Errorf("insert past extent = %v, want ErrRange", err)
	}
	if err := s.InsertNode(-1, MakeCoord(1, 1)); !errors.Is(err, ErrRange) {
		t.Errorf("insert negative = %v, want ErrRange", err)
	}
	if _, err := s.NodeAt(100); !errors.Is(err, ErrRange) {
		t.Errorf("lookup past extent = %v, want ErrRange", err)
	}
}

func TestDenseNodesClearRetainsExtent(t *testing.T) {
	s := newTestStore(t, Options{DenseNodes: true, NodeHint: 100})

	s.InsertNode(10, MakeCoord(1, 1))
	s.InsertWay(1, []NodeID{10, 11})
	s.Clear()

	// Extent survives the global clear; entries read the sentinel.
	c, err := s.NodeAt(10)
	if err != nil {
		t.Fatalf("NodeAt after Clear: %v", err)
	}
	if !c.IsZero() {
		t.Errorf("entry after Clear = %v, want sentinel", c)
	}
	if err := s.InsertNode(99, MakeCoord(2, 2)); err != nil {
		t.Fatalf("InsertNode after Clear: %v", err)
	}
}

func TestDenseNodesReserveGrows(t *testing.T) {
	s := newTestStore(t, Options{DenseNodes: true, NodeHint: 10})

	s.InsertNode(5, MakeCoord(3, 3))
	if err := s.ReserveNodes(1000); err != nil {
		t.Fatalf("ReserveNodes: %v", err)
	}

	// Existing entries carry over into the larger extent.
	c, err := s.NodeAt(5)
	if err != nil {
		t.Fatal(err)
	}
	if c != MakeCoord(3, 3) {
		t.Errorf("entry lost on re-reserve: %v", c)
	}
	if err := s.InsertNode(999, MakeCoord(4, 4)); err != nil {
		t.Fatalf("insert into grown extent: %v", err)
	}
}

func TestSparseNodesAnyOrder(t *testing.T) {
	s := newTestStore(t, Options{NodeHint: 4})

	// Sparse accepts any subset of the domain in any order.
	ids := []NodeID{1 << 40, 3, 999999999999, 0}
	for i, id := range ids {
		if err := s.InsertNode(id, MakeCoord(float64(i), float64(i))); err != nil {
			t.Fatalf("InsertNode(%d): %v", id, err)
		}
	}
	if s.Stats().Nodes != len(ids) {
		t.Errorf("Size = %d, want %d", s.Stats().Nodes, len(ids))
	}
	for i, id := range ids {
		c, err := s.NodeAt(id)
		if err != nil {
			t.Fatalf("NodeAt(%d): %v", id, err)
		}
		if want := MakeCoord(float64(i), float64(i)); c != want {
			t.Errorf("NodeAt(%d) = %v, want %v", id, c, want)
		}
	}
}

func TestSparseReinsertOverwrites(t *testing.T) {
	s := newTestStore(t, Options{})

	s.InsertNode(1, MakeCoord(1, 1))
	s.InsertNode(1, MakeCoord(2, 2))

	c, _ := s.NodeAt(1)
	if c != MakeCoord(2, 2) {
		t.Errorf("re-insert did not overwrite: %v", c)
	}
	if s.Stats().Nodes != 1 {
		t.Errorf("Size after re-insert = %d, want 1", s.Stats().Nodes)
	}
}
