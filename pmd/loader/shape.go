package loader

import (
	"go.uber.org/zap"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/parser"
)

type headerBuilder struct {
	*state
}

func (b *headerBuilder) Header(h *parser.Header) error {
	b.m.Version = h.Version
	b.m.Name.Primary = h.Name
	b.m.Description.Primary = h.Description
	return nil
}

// shapeBuilder builds vertices and surfaces.
type shapeBuilder struct {
	*state
	loops
}

func (b *shapeBuilder) LoopStart(kind parser.Loop, _ int) error {
	switch kind {
	case parser.LoopVertex:
		b.m.Vertices = nil
	case parser.LoopSurface:
		b.m.Surfaces = nil
	}
	return nil
}

func (b *shapeBuilder) LoopEnd(kind parser.Loop) error {
	switch kind {
	case parser.LoopVertex:
		b.log.Debug("vertices loaded", zap.Int("count", len(b.m.Vertices)))
	case parser.LoopSurface:
		b.log.Debug("surfaces loaded", zap.Int("count", len(b.m.Surfaces)))
	}
	return nil
}

func (b *shapeBuilder) Vertex(r *parser.VertexRecord) error {
	v := pmd.NewVertex()
	v.SetSerialNumber(len(b.m.Vertices))
	v.Position = vec3(r.Position)
	v.Normal = vec3(r.Normal)
	v.UV = vec2(r.UV)
	v.ShowEdge = !r.HideEdge
	if err := v.SetWeightA(r.Weight); err != nil {
		return mmd.NewFormatError("vertex %d: bone weight %d out of range", len(b.m.Vertices), r.Weight)
	}
	boneA, err := b.growBones(r.BoneA)
	if err != nil {
		return err
	}
	boneB, err := b.growBones(r.BoneB)
	if err != nil {
		return err
	}
	v.SetBonePair(boneA, boneB)
	b.m.Vertices = append(b.m.Vertices, v)
	return nil
}

func (b *shapeBuilder) Surface(r *parser.SurfaceRecord) error {
	var tri [3]*pmd.Vertex
	for i, id := range r.Vertices {
		v, err := b.vertex(id)
		if err != nil {
			return err
		}
		tri[i] = v
	}
	s, err := pmd.NewSurface(tri[0], tri[1], tri[2])
	if err != nil {
		return mmd.NewFormatError("surface %d: %v", len(b.m.Surfaces), err)
	}
	s.SetSerialNumber(len(b.m.Surfaces))
	b.m.Surfaces = append(b.m.Surfaces, s)
	return nil
}

// materialBuilder slices the surface list into materials.
type materialBuilder struct {
	*state
	loops
	next int
}

func (b *materialBuilder) LoopEnd(kind parser.Loop) error {
	if kind != parser.LoopMaterial {
		return nil
	}
	if b.next < len(b.m.Surfaces) {
		b.log.Warn("surfaces not covered by any material",
			zap.Int("surfaces", len(b.m.Surfaces)), zap.Int("covered", b.next))
	}
	b.log.Debug("materials loaded", zap.Int("count", len(b.m.Materials)))
	return nil
}

func (b *materialBuilder) Material(r *parser.MaterialRecord) error {
	end := b.next + r.Surfaces
	if end > len(b.m.Surfaces) {
		return mmd.NewFormatError("material %d: surface count %d exceeds the surface list", len(b.m.Materials), r.Surfaces)
	}
	m := pmd.NewMaterial()
	m.Diffuse = pmd.Color{R: r.Diffuse[0], G: r.Diffuse[1], B: r.Diffuse[2], A: r.Diffuse[3]}
	m.Shininess = r.Shininess
	m.SetSpecular(pmd.Color{R: r.Specular[0], G: r.Specular[1], B: r.Specular[2]})
	m.SetAmbient(pmd.Color{R: r.Ambient[0], G: r.Ambient[1], B: r.Ambient[2]})
	m.ShowEdge = r.Edge
	m.Shade.ToonIndex = r.Toon
	m.Shade.SetShadingFile(r.ShadingFile)
	m.Surfaces = append([]*pmd.Surface(nil), b.m.Surfaces[b.next:end]...)
	b.next = end
	b.m.Materials = append(b.m.Materials, m)
	return nil
}
