package pmd

import (
	"errors"
	"fmt"
)

const (
	MinWeight = 0
	MaxWeight = 100
)

var (
	ErrWeightRange       = errors.New("pmd: bone weight out of range")
	ErrDegenerateSurface = errors.New("pmd: degenerate surface")
)

// Vertex is a skinned mesh vertex weighted between two bones.
type Vertex struct {
	Position Vector3
	Normal   Vector3
	UV       Vector2

	BoneA *Bone
	BoneB *Bone
	// WeightA is the share of BoneA in percent. BoneB takes the rest.
	WeightA int

	ShowEdge bool

	serial int
}

// NewVertex returns a vertex with an even weight split and a visible edge.
func NewVertex() *Vertex {
	return &Vertex{WeightA: 50, ShowEdge: true, serial: -1}
}

func (v *Vertex) SerialNumber() int     { return v.serial }
func (v *Vertex) SetSerialNumber(n int) { v.serial = n }

// SetBonePair sets both influencing bones.
func (v *Vertex) SetBonePair(a, b *Bone) {
	v.BoneA = a
	v.BoneB = b
}

// SetWeightA sets the share of bone A in percent.
func (v *Vertex) SetWeightA(w int) error {
	if w < MinWeight || w > MaxWeight {
		return fmt.Errorf("%w: %d", ErrWeightRange, w)
	}
	v.WeightA = w
	return nil
}

// SetWeightB sets the share of bone B in percent.
func (v *Vertex) SetWeightB(w int) error {
	return v.SetWeightA(MaxWeight - w)
}

func (v *Vertex) WeightB() int {
	return MaxWeight - v.WeightA
}

func (v *Vertex) WeightRatioA() float32 {
	return float32(v.WeightA) / MaxWeight
}

func (v *Vertex) WeightRatioB() float32 {
	return float32(MaxWeight-v.WeightA) / MaxWeight
}

func (v *Vertex) String() string {
	return fmt.Sprintf("Vertex(%d) %v normal=%v uv=(%g, %g) weight=%d edge=%v",
		v.serial, v.Position, v.Normal, v.UV.X, v.UV.Y, v.WeightA, v.ShowEdge)
}

// Surface is a triangle of three distinct vertices.
type Surface struct {
	vertices [3]*Vertex
	serial   int
}

// NewSurface returns a triangle, rejecting repeated vertices.
func NewSurface(v1, v2, v3 *Vertex) (*Surface, error) {
	s := &Surface{serial: -1}
	if err := s.SetTriangle(v1, v2, v3); err != nil {
		return nil, err
	}
	return s, nil
}

// SetTriangle replaces the vertices. Any two identical non-nil vertices are rejected.
func (s *Surface) SetTriangle(v1, v2, v3 *Vertex) error {
	if v1 != nil && (v1 == v2 || v1 == v3) {
		return ErrDegenerateSurface
	}
	if v2 != nil && v2 == v3 {
		return ErrDegenerateSurface
	}
	s.vertices = [3]*Vertex{v1, v2, v3}
	return nil
}

// Triangle returns the three vertices in winding order.
func (s *Surface) Triangle() [3]*Vertex {
	return s.vertices
}

func (s *Surface) Vertex(i int) *Vertex {
	return s.vertices[i]
}

// IsCompleted reports whether all three vertices are set.
func (s *Surface) IsCompleted() bool {
	return s.vertices[0] != nil && s.vertices[1] != nil && s.vertices[2] != nil
}

func (s *Surface) SerialNumber() int     { return s.serial }
func (s *Surface) SetSerialNumber(n int) { s.serial = n }

func (s *Surface) String() string {
	if !s.IsCompleted() {
		return fmt.Sprintf("Surface(%d)", s.serial)
	}
	return fmt.Sprintf("Surface(%d) VID=[%d,%d,%d]", s.serial,
		s.vertices[0].serial, s.vertices[1].serial, s.vertices[2].serial)
}
