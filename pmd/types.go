// Package pmd is the in-memory object graph of a .pmd character model.
//
// Entities refer to each other with plain pointers. Pointers never imply
// ownership: the bone links may form cycles and a vertex is shared by any
// number of surfaces and morphs. Ownership is expressed by the collections
// of Model.
package pmd

import "fmt"

type Vector2 struct {
	X float32
	Y float32
}

type Vector3 struct {
	X float32
	Y float32
	Z float32
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Color is an RGBA color with float components in 0..1.
type Color struct {
	R float32
	G float32
	B float32
	A float32
}

// Opaque returns c with alpha forced to 1.
func (c Color) Opaque() Color {
	c.A = 1
	return c
}

// Range is a closed interval. From is never greater than To.
type Range struct {
	from float32
	to   float32
}

// NewRange returns the interval between a and b in either order.
func NewRange(a, b float32) Range {
	if a <= b {
		return Range{from: a, to: b}
	}
	return Range{from: b, to: a}
}

func (r Range) From() float32 { return r.from }
func (r Range) To() float32   { return r.to }

func (r Range) Contains(v float32) bool {
	return r.from <= v && v <= r.to
}

// Range3 holds independent limits for the X, Y and Z axes.
type Range3 struct {
	X Range
	Y Range
	Z Range
}

func (r *Range3) SetX(from, to float32) { r.X = NewRange(from, to) }
func (r *Range3) SetY(from, to float32) { r.Y = NewRange(from, to) }
func (r *Range3) SetZ(from, to float32) { r.Z = NewRange(from, to) }

// Contains reports whether v is inside the limits on all three axes.
func (r *Range3) Contains(v Vector3) bool {
	return r.X.Contains(v.X) && r.Y.Contains(v.Y) && r.Z.Contains(v.Z)
}

// Text is a name with an optional English (global) counterpart.
type Text struct {
	Primary string
	Global  string
}

// HasGlobal reports whether an English name is set.
func (t *Text) HasGlobal() bool {
	return t.Global != ""
}

func (t Text) String() string {
	if t.Primary == "" {
		return t.Global
	}
	return t.Primary
}
