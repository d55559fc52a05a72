package loader

import (
	"go.uber.org/zap"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/parser"
)

// morphBuilder builds the morphs. The base morph defines the vertex table
// the other morphs index into and is not kept in the model.
type morphBuilder struct {
	*state
	loops
	current *pmd.MorphPart
	base    []*pmd.Vertex
	order   []int
}

func (b *morphBuilder) LoopStart(kind parser.Loop, _ int) error {
	switch kind {
	case parser.LoopMorph:
		b.morphs = nil
	case parser.LoopMorphOrder:
		b.order = nil
	}
	return nil
}

func (b *morphBuilder) LoopEnd(kind parser.Loop) error {
	if kind != parser.LoopMorphOrder {
		return nil
	}
	listed := map[*pmd.MorphPart]bool{}
	var morphs []*pmd.MorphPart
	for _, t := range pmd.MorphTypes {
		for _, id := range b.order {
			p := b.morphs[id]
			if p.Type == t && !listed[p] {
				listed[p] = true
				morphs = append(morphs, p)
			}
		}
	}
	for _, p := range b.morphs {
		if p.Type != pmd.MorphBase && !listed[p] {
			b.log.Warn("morph missing from the display order is dropped", zap.String("morph", p.Name.Primary))
		}
	}
	b.m.Morphs = morphs
	b.log.Debug("morphs loaded", zap.Int("count", len(morphs)), zap.Int("base_vertices", len(b.base)))
	return nil
}

func (b *morphBuilder) Morph(r *parser.MorphRecord) error {
	t := pmd.MorphType(r.Type)
	if !t.IsValid() {
		return mmd.NewFormatError("morph %q: unknown morph type %d", r.Name, r.Type)
	}
	p := pmd.NewMorphPart(r.Name, t)
	p.SetSerialNumber(len(b.morphs))
	b.morphs = append(b.morphs, p)
	b.current = p
	return nil
}

func (b *morphBuilder) MorphVertex(r *parser.MorphVertexRecord) error {
	p := b.current
	mv := &pmd.MorphVertex{Offset: vec3(r.Offset)}
	if p.Type == pmd.MorphBase {
		v, err := b.vertex(r.ID)
		if err != nil {
			return err
		}
		mv.Vertex = v
		mv.SetSerialNumber(len(b.base))
		b.base = append(b.base, v)
	} else {
		if r.ID < 0 || r.ID >= len(b.base) {
			return mmd.NewFormatError("morph %q: base morph index %d out of range", p.Name.Primary, r.ID)
		}
		mv.Vertex = b.base[r.ID]
		mv.SetSerialNumber(r.ID)
	}
	p.Vertices = append(p.Vertices, mv)
	return nil
}

func (b *morphBuilder) MorphOrder(id int) error {
	if id >= len(b.morphs) {
		return mmd.NewFormatError("morph id %d out of range", id)
	}
	if b.morphs[id].Type == pmd.MorphBase {
		b.log.Warn("base morph in the display order is ignored", zap.Int("id", id))
		return nil
	}
	b.order = append(b.order, id)
	return nil
}

// englishBuilder fills the English names.
type englishBuilder struct {
	*state
	loops
	bone  int
	morph int
	group int
}

func (b *englishBuilder) English(enabled bool) error {
	return nil
}

func (b *englishBuilder) EnglishHeader(name, description string) error {
	b.m.Name.Global = name
	b.m.Description.Global = description
	return nil
}

func (b *englishBuilder) EnglishBoneName(name string) error {
	if b.bone < len(b.m.Bones) {
		b.m.Bones[b.bone].Name.Global = name
	}
	b.bone++
	return nil
}

// EnglishMorphName names the morphs in file order, skipping the base morph.
func (b *englishBuilder) EnglishMorphName(name string) error {
	b.morph++
	if b.morph < len(b.morphs) {
		b.morphs[b.morph].Name.Global = name
	}
	return nil
}

func (b *englishBuilder) EnglishBoneGroupName(name string) error {
	b.group++
	if b.group < len(b.m.BoneGroups) {
		b.m.BoneGroups[b.group].Name.Global = name
	}
	return nil
}

type toonBuilder struct {
	*state
	loops
	next int
}

func (b *toonBuilder) ToonFile(file string) error {
	b.m.Toon.Set(b.next, file)
	b.next++
	return nil
}
