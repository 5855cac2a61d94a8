// Package wkb encodes and decodes the geometry payloads kept in the
// arena-backed geometry cache. Little-endian WKB without SRID; the
// bytes never leave the process.
package wkb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// WKB geometry type constants (ISO SQL/MM specification)
const (
	wkbPoint        = 1
	wkbLineString   = 2
	wkbPolygon      = 3
	wkbMultiPolygon = 6
)

// Encoder encodes geometries to WKB with a reusable buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with a pre-allocated buffer.
func NewEncoder(initialSize int) *Encoder {
	return &Encoder{buf: make([]byte, 0, initialSize)}
}

// Reset clears the buffer for reuse.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// EncodePoint encodes a point. The returned slice is valid until the
// next Encode call.
func (e *Encoder) EncodePoint(p orb.Point) []byte {
	e.Reset()
	e.appendHeader(wkbPoint)
	e.appendFloat64(p[0])
	e.appendFloat64(p[1])
	return e.buf
}

// EncodeLineString encodes a linestring.
func (e *Encoder) EncodeLineString(ls orb.LineString) []byte {
	e.Reset()
	e.appendHeader(wkbLineString)
	e.appendUint32(uint32(len(ls)))
	for _, p := range ls {
		e.appendFloat64(p[0])
		e.appendFloat64(p[1])
	}
	return e.buf
}

// EncodeMultiPolygon encodes a multipolygon. Each member polygon is
// written as an embedded WKB polygon.
func (e *Encoder) EncodeMultiPolygon(mp orb.MultiPolygon) []byte {
	e.Reset()
	e.appendHeader(wkbMultiPolygon)
	e.appendUint32(uint32(len(mp)))
	for _, poly := range mp {
		e.appendHeader(wkbPolygon)
		e.appendUint32(uint32(len(poly)))
		for _, ring := range poly {
			e.appendUint32(uint32(len(ring)))
			for _, p := range ring {
				e.appendFloat64(p[0])
				e.appendFloat64(p[1])
			}
		}
	}
	return e.buf
}

func (e *Encoder) appendHeader(geomType uint32) {
	e.buf = append(e.buf, 0x01) // little-endian byte order
	e.appendUint32(geomType)
}

func (e *Encoder) appendUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) appendFloat64(v float64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v))
}

// DecodePoint decodes a WKB point.
func DecodePoint(b []byte) (orb.Point, error) {
	d, err := newDecoder(b, wkbPoint)
	if err != nil {
		return orb.Point{}, err
	}
	return d.point()
}

// DecodeLineString decodes a WKB linestring.
func DecodeLineString(b []byte) (orb.LineString, error) {
	d, err := newDecoder(b, wkbLineString)
	if err != nil {
		return nil, err
	}
	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	ls := make(orb.LineString, 0, n)
	for i := uint32(0); i < n; i++ {
		p, err := d.point()
		if err != nil {
			return nil, err
		}
		ls = append(ls, p)
	}
	return ls, nil
}

// DecodeMultiPolygon decodes a WKB multipolygon.
func DecodeMultiPolygon(b []byte) (orb.MultiPolygon, error) {
	d, err := newDecoder(b, wkbMultiPolygon)
	if err != nil {
		return nil, err
	}
	numPolys, err := d.uint32()
	if err != nil {
		return nil, err
	}

	mp := make(orb.MultiPolygon, 0, numPolys)
	for i := uint32(0); i < numPolys; i++ {
		if err := d.header(wkbPolygon); err != nil {
			return nil, err
		}
		numRings, err := d.uint32()
		if err != nil {
			return nil, err
		}
		poly := make(orb.Polygon, 0, numRings)
		for r := uint32(0); r < numRings; r++ {
			numPoints, err := d.uint32()
			if err != nil {
				return nil, err
			}
			ring := make(orb.Ring, 0, numPoints)
			for p := uint32(0); p < numPoints; p++ {
				pt, err := d.point()
				if err != nil {
					return nil, err
				}
				ring = append(ring, pt)
			}
			poly = append(poly, ring)
		}
		mp = append(mp, poly)
	}
	return mp, nil
}

type decoder struct {
	b   []byte
	pos int
}

func newDecoder(b []byte, wantType uint32) (*decoder, error) {
	d := &decoder{b: b}
	if err := d.header(wantType); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *decoder) header(wantType uint32) error {
	if len(d.b)-d.pos < 5 {
		return fmt.Errorf("wkb: truncated header")
	}
	if d.b[d.pos] != 0x01 {
		return fmt.Errorf("wkb: unsupported byte order %#x", d.b[d.pos])
	}
	d.pos++
	gt, err := d.uint32()
	if err != nil {
		return err
	}
	if gt != wantType {
		return fmt.Errorf("wkb: geometry type %d, want %d", gt, wantType)
	}
	return nil
}

func (d *decoder) uint32() (uint32, error) {
	if len(d.b)-d.pos < 4 {
		return 0, fmt.Errorf("wkb: truncated uint32")
	}
	v := binary.LittleEndian.Uint32(d.b[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) point() (orb.Point, error) {
	if len(d.b)-d.pos < 16 {
		return orb.Point{}, fmt.Errorf("wkb: truncated point")
	}
	x := math.Float64frombits(binary.LittleEndian.Uint64(d.b[d.pos:]))
	y := math.Float64frombits(binary.LittleEndian.Uint64(d.b[d.pos+8:]))
	d.pos += 16
	return orb.Point{x, y}, nil
}
