package pmd

import (
	"fmt"
	"sort"
)

type MorphType int

const (
	MorphBase MorphType = iota
	MorphEyebrow
	MorphEye
	MorphLip
	MorphExtra
)

// MorphTypes lists the non-base morph types in file order.
var MorphTypes = []MorphType{MorphEyebrow, MorphEye, MorphLip, MorphExtra}

func (t MorphType) String() string {
	switch t {
	case MorphBase:
		return "BASE"
	case MorphEyebrow:
		return "EYEBROW"
	case MorphEye:
		return "EYE"
	case MorphLip:
		return "LIP"
	case MorphExtra:
		return "EXTRA"
	default:
		return fmt.Sprintf("MorphType(%d)", int(t))
	}
}

func (t MorphType) IsValid() bool {
	return t >= MorphBase && t <= MorphExtra
}

// MorphVertex moves a vertex by Offset when the morph is applied.
type MorphVertex struct {
	Vertex *Vertex
	Offset Vector3

	serial int
}

// SerialNumber is the index in the merged base morph.
func (v *MorphVertex) SerialNumber() int     { return v.serial }
func (v *MorphVertex) SetSerialNumber(n int) { v.serial = n }

// MorphPart is a named facial expression.
type MorphPart struct {
	Name     Text
	Type     MorphType
	Vertices []*MorphVertex

	serial int
}

func NewMorphPart(name string, t MorphType) *MorphPart {
	return &MorphPart{Name: Text{Primary: name}, Type: t, serial: -1}
}

// SerialNumber is the position in the file morph list. The base morph is 0.
func (m *MorphPart) SerialNumber() int     { return m.serial }
func (m *MorphPart) SetSerialNumber(n int) { m.serial = n }

func (m *MorphPart) String() string {
	return fmt.Sprintf("Morph(%d) %q %v vertices=%d", m.serial, m.Name.Primary, m.Type, len(m.Vertices))
}

// MorphsInFileOrder returns the non-base morphs grouped by type in the
// order eyebrow, eye, lip, extra. The order within a type is kept.
func (m *Model) MorphsInFileOrder() []*MorphPart {
	var r []*MorphPart
	for _, t := range MorphTypes {
		r = append(r, m.MorphsOf(t)...)
	}
	return r
}

// MorphsOf returns the morphs of type t.
func (m *Model) MorphsOf(t MorphType) []*MorphPart {
	var r []*MorphPart
	for _, p := range m.Morphs {
		if p.Type == t {
			r = append(r, p)
		}
	}
	return r
}

// MergeMorphVertices collects the vertices moved by any morph, sorted by
// vertex serial number, and numbers every morph vertex by its position in
// that list. The result is the content of the base morph.
// Vertex serial numbers must be current.
func (m *Model) MergeMorphVertices() []*Vertex {
	index := map[*Vertex]int{}
	var merged []*Vertex
	for _, part := range m.MorphsInFileOrder() {
		for _, mv := range part.Vertices {
			if _, ok := index[mv.Vertex]; !ok {
				index[mv.Vertex] = 0
				merged = append(merged, mv.Vertex)
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].serial < merged[j].serial
	})
	for i, v := range merged {
		index[v] = i
	}
	for _, part := range m.Morphs {
		for _, mv := range part.Vertices {
			mv.serial = index[mv.Vertex]
		}
	}
	return merged
}
