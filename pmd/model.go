package pmd

import (
	"fmt"
	"math"

	"github.com/binzume/pmdconv/mmd"
)

// Header defaults.
const (
	Magic          = "Pmd"
	DefaultVersion = float32(1.0)
)

// Field widths and counts of the file format.
const (
	MaxNameBytes        = 20
	MaxDescriptionBytes = 256
	MaxShadingBytes     = 20
	MaxBoneGroupBytes   = 50
	MaxToonFileBytes    = 100

	// MaxBone is the bone id sentinel. Valid bone ids are below it.
	MaxBone           = 0xffff
	MaxVertex         = 0xffff
	MaxIKChainLength  = 0xff
	MaxMorphOrder     = 0xff
	MaxBoneGroupCount = 0xff
)

// ExportError reports a model that cannot be represented in the file format.
type ExportError struct {
	Msg string
}

func (e *ExportError) Error() string {
	return "pmd: cannot export: " + e.Msg
}

func (e *ExportError) Is(target error) bool {
	return target == mmd.ErrNotExportable
}

func exportErrorf(format string, args ...interface{}) *ExportError {
	return &ExportError{Msg: fmt.Sprintf(format, args...)}
}

// Model is a complete character model.
type Model struct {
	Version     float32
	Name        Text
	Description Text

	Vertices  []*Vertex
	Surfaces  []*Surface
	Materials []*Material

	Bones []*Bone
	// BoneGroups[0] is the default group.
	BoneGroups []*BoneGroup
	IKChains   []*IKChain

	// Morphs holds the non-base morphs. The base morph is derived.
	Morphs []*MorphPart

	RigidBodies []*RigidBody
	// RigidGroups always holds RigidGroupCount groups.
	RigidGroups []*RigidGroup
	Joints      []*Joint

	Toon *ToonMap
}

// NewModel returns an empty model with the default bone group, the rigid
// groups and the default toon map.
func NewModel() *Model {
	m := &Model{
		Version:    DefaultVersion,
		BoneGroups: []*BoneGroup{NewBoneGroup("")},
		Toon:       NewToonMap(),
	}
	for i := 0; i < RigidGroupCount; i++ {
		m.RigidGroups = append(m.RigidGroups, NewRigidGroup())
	}
	m.Renumber()
	return m
}

// DefaultBoneGroup returns the implicit group 0.
func (m *Model) DefaultBoneGroup() *BoneGroup {
	if len(m.BoneGroups) == 0 {
		return nil
	}
	return m.BoneGroups[0]
}

// Renumber assigns serial numbers from the current list positions.
// Morphs are numbered from 1, the base morph takes 0.
func (m *Model) Renumber() {
	for i, v := range m.Vertices {
		if v != nil {
			v.serial = i
		}
	}
	for i, s := range m.Surfaces {
		if s != nil {
			s.serial = i
		}
	}
	for i, b := range m.Bones {
		if b != nil {
			b.serial = i
		}
	}
	for i, g := range m.BoneGroups {
		g.serial = i
	}
	for i, p := range m.MorphsInFileOrder() {
		p.serial = i + 1
	}
	for i, r := range m.RigidBodies {
		if r != nil {
			r.serial = i
		}
	}
	for i, g := range m.RigidGroups {
		g.serial = i
	}
}

// HasGlobalText reports whether any English name is set.
func (m *Model) HasGlobalText() bool {
	if m.Name.HasGlobal() || m.Description.HasGlobal() {
		return true
	}
	for _, b := range m.Bones {
		if b.Name.HasGlobal() {
			return true
		}
	}
	for _, p := range m.Morphs {
		if p.Name.HasGlobal() {
			return true
		}
	}
	for _, g := range m.BoneGroups {
		if !g.IsDefault() && g.Name.HasGlobal() {
			return true
		}
	}
	return false
}

// BoneGroupOf returns the first non-default group holding b, or the default group.
func (m *Model) BoneGroupOf(b *Bone) *BoneGroup {
	for _, g := range m.BoneGroups {
		if !g.IsDefault() && g.Contains(b) {
			return g
		}
	}
	return m.DefaultBoneGroup()
}

// UngroupedBones returns the bones held by no explicit group, in bone order.
func (m *Model) UngroupedBones() []*Bone {
	grouped := map[*Bone]bool{}
	for _, g := range m.BoneGroups {
		if g.IsDefault() {
			continue
		}
		for _, b := range g.Bones {
			grouped[b] = true
		}
	}
	var r []*Bone
	for _, b := range m.Bones {
		if !grouped[b] {
			r = append(r, b)
		}
	}
	return r
}

// Trim rebuilds the surface and vertex lists from what the materials use.
// Surfaces are listed in material order, the order they are written in.
// Vertices missing from the list are appended, nil holes and entries nothing
// refers to are dropped, and serial numbers are reassigned.
func (m *Model) Trim() {
	var used []*Surface
	seen := map[*Surface]bool{}
	for _, mat := range m.Materials {
		for _, s := range mat.Surfaces {
			if s != nil && !seen[s] {
				seen[s] = true
				used = append(used, s)
			}
		}
	}
	m.Surfaces = used

	usedVertex := map[*Vertex]bool{}
	var extra []*Vertex
	addRef := func(v *Vertex) {
		if v != nil && !usedVertex[v] {
			usedVertex[v] = true
			extra = append(extra, v)
		}
	}
	for _, s := range m.Surfaces {
		for _, v := range s.vertices {
			addRef(v)
		}
	}
	for _, p := range m.Morphs {
		for _, mv := range p.Vertices {
			addRef(mv.Vertex)
		}
	}
	listed := map[*Vertex]bool{}
	var vertices []*Vertex
	for _, v := range m.Vertices {
		if v != nil && usedVertex[v] && !listed[v] {
			listed[v] = true
			vertices = append(vertices, v)
		}
	}
	for _, v := range extra {
		if !listed[v] {
			listed[v] = true
			vertices = append(vertices, v)
		}
	}
	m.Vertices = vertices

	m.Renumber()
}

// Validate checks that the model can be written. Serial numbers are
// reassigned first.
func (m *Model) Validate() error {
	m.Renumber()

	if len(m.Vertices) > MaxVertex {
		return exportErrorf("too many vertices: %d", len(m.Vertices))
	}
	if len(m.Bones) >= MaxBone {
		return exportErrorf("too many bones: %d", len(m.Bones))
	}
	for i, v := range m.Vertices {
		if v == nil {
			return exportErrorf("vertex %d is nil", i)
		}
		if !m.hasBone(v.BoneA) || !m.hasBone(v.BoneB) {
			return exportErrorf("vertex %d: bone is not in the bone list", i)
		}
		if v.WeightA < MinWeight || v.WeightA > MaxWeight {
			return exportErrorf("vertex %d: weight %d out of range", i, v.WeightA)
		}
	}
	owner := map[*Surface]int{}
	for i, mat := range m.Materials {
		if mat == nil {
			return exportErrorf("material %d is nil", i)
		}
		if t := mat.Shade.ToonIndex; (t < 0 || t >= ToonCount) && t != ToonIndexDefault {
			return exportErrorf("material %d: toon index %d out of range", i, t)
		}
		for _, s := range mat.Surfaces {
			if s == nil || !s.IsCompleted() {
				return exportErrorf("material %d: incomplete surface", i)
			}
			if j, ok := owner[s]; ok {
				return exportErrorf("material %d: %v already belongs to material %d", i, s, j)
			}
			owner[s] = i
			for _, v := range s.vertices {
				if !m.hasVertex(v) {
					return exportErrorf("material %d: %v refers to a vertex not in the vertex list", i, s)
				}
			}
		}
	}
	for i, b := range m.Bones {
		if b == nil {
			return exportErrorf("bone %d is nil", i)
		}
		if !b.Type.IsValid() {
			return exportErrorf("bone %d: unknown type %d", i, int(b.Type))
		}
		if (b.Prev != nil && !m.hasBone(b.Prev)) || (b.Next != nil && !m.hasBone(b.Next)) {
			return exportErrorf("bone %d: linked bone is not in the bone list", i)
		}
		if b.Type != BoneLinkedRot && b.IK != nil && !m.hasBone(b.IK) {
			return exportErrorf("bone %d: IK bone is not in the bone list", i)
		}
		if b.Type == BoneLinkedRot && (b.RotationRatio < 0 || b.RotationRatio > math.MaxUint16) {
			return exportErrorf("bone %d: rotation ratio %d out of range", i, b.RotationRatio)
		}
	}
	for i, ik := range m.IKChains {
		if ik == nil || ik.IKBone == nil || ik.Target() == nil {
			return exportErrorf("IK chain %d has no IK bone or target", i)
		}
		if len(ik.Chain)-1 > MaxIKChainLength {
			return exportErrorf("IK chain %d is too long: %d", i, len(ik.Chain)-1)
		}
		if ik.Depth < 0 || ik.Depth > math.MaxUint16 {
			return exportErrorf("IK chain %d: depth %d out of range", i, ik.Depth)
		}
		if !m.hasBone(ik.IKBone) {
			return exportErrorf("IK chain %d: IK bone is not in the bone list", i)
		}
		for _, b := range ik.Chain {
			if !m.hasBone(b) {
				return exportErrorf("IK chain %d: chain bone is not in the bone list", i)
			}
		}
	}
	if len(m.Morphs) > MaxMorphOrder {
		return exportErrorf("too many morphs: %d", len(m.Morphs))
	}
	for _, p := range m.Morphs {
		if p.Type == MorphBase || !p.Type.IsValid() {
			return exportErrorf("morph %q has type %v", p.Name.Primary, p.Type)
		}
		for _, mv := range p.Vertices {
			if mv == nil || !m.hasVertex(mv.Vertex) {
				return exportErrorf("morph %q refers to a vertex not in the vertex list", p.Name.Primary)
			}
		}
	}
	if len(m.BoneGroups) == 0 {
		return exportErrorf("default bone group is missing")
	}
	if len(m.BoneGroups)-1 > MaxBoneGroupCount {
		return exportErrorf("too many bone groups: %d", len(m.BoneGroups)-1)
	}
	for _, g := range m.BoneGroups[1:] {
		for _, b := range g.Bones {
			if !m.hasBone(b) {
				return exportErrorf("bone group %q refers to a bone not in the bone list", g.Name.Primary)
			}
		}
	}
	if len(m.RigidGroups) != RigidGroupCount {
		return exportErrorf("rigid group count is %d", len(m.RigidGroups))
	}
	for i, r := range m.RigidBodies {
		if r == nil {
			return exportErrorf("rigid body %d is nil", i)
		}
		if r.Bone != nil && !m.hasBone(r.Bone) {
			return exportErrorf("rigid body %q: bone is not in the bone list", r.Name.Primary)
		}
		if !r.Shape.Type.IsValid() || !r.Behavior.IsValid() {
			return exportErrorf("rigid body %q: shape %v or behavior %v is unknown", r.Name.Primary, r.Shape.Type, r.Behavior)
		}
		if !m.hasRigidGroup(r.Group) {
			return exportErrorf("rigid body %q has no rigid group", r.Name.Primary)
		}
		for _, g := range r.NoCollision {
			if !m.hasRigidGroup(g) {
				return exportErrorf("rigid body %q: unknown collision group", r.Name.Primary)
			}
		}
	}
	for i, j := range m.Joints {
		if j == nil || !m.hasRigid(j.RigidA) || !m.hasRigid(j.RigidB) {
			return exportErrorf("joint %d: rigid body is not in the rigid list", i)
		}
	}
	return nil
}

func (m *Model) hasBone(b *Bone) bool {
	return b != nil && b.serial >= 0 && b.serial < len(m.Bones) && m.Bones[b.serial] == b
}

func (m *Model) hasVertex(v *Vertex) bool {
	return v != nil && v.serial >= 0 && v.serial < len(m.Vertices) && m.Vertices[v.serial] == v
}

func (m *Model) hasRigid(r *RigidBody) bool {
	return r != nil && r.serial >= 0 && r.serial < len(m.RigidBodies) && m.RigidBodies[r.serial] == r
}

func (m *Model) hasRigidGroup(g *RigidGroup) bool {
	return g != nil && g.serial >= 0 && g.serial < len(m.RigidGroups) && m.RigidGroups[g.serial] == g
}

// Summary is a flat description of a model used for reports.
type Summary struct {
	Name        string  `yaml:"name"`
	Version     float32 `yaml:"version"`
	Description string  `yaml:"description,omitempty"`
	Vertices    int     `yaml:"vertices"`
	Surfaces    int     `yaml:"surfaces"`
	Materials   int     `yaml:"materials"`
	Bones       int     `yaml:"bones"`
	IKChains    int     `yaml:"ik_chains"`
	Morphs      int     `yaml:"morphs"`
	BoneGroups  int     `yaml:"bone_groups"`
	RigidBodies int     `yaml:"rigid_bodies"`
	Joints      int     `yaml:"joints"`
	English     bool    `yaml:"english"`
	CustomToon  bool    `yaml:"custom_toon"`
}

// Summarize returns the counts of every collection.
func (m *Model) Summarize() *Summary {
	return &Summary{
		Name:        m.Name.Primary,
		Version:     m.Version,
		Description: m.Description.Primary,
		Vertices:    len(m.Vertices),
		Surfaces:    len(m.Surfaces),
		Materials:   len(m.Materials),
		Bones:       len(m.Bones),
		IKChains:    len(m.IKChains),
		Morphs:      len(m.Morphs),
		BoneGroups:  len(m.BoneGroups) - 1,
		RigidBodies: len(m.RigidBodies),
		Joints:      len(m.Joints),
		English:     m.HasGlobalText(),
		CustomToon:  m.Toon != nil && !m.Toon.IsDefault(),
	}
}
