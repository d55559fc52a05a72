package loader

import (
	"go.uber.org/zap"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/parser"
)

// state is shared by the builders of one load.
type state struct {
	m   *pmd.Model
	log *zap.Logger

	declaredBones int
	// morphs holds every morph in file order, base included.
	morphs []*pmd.MorphPart
}

func newState(log *zap.Logger) *state {
	return &state{m: pmd.NewModel(), log: log}
}

func (s *state) handlers() parser.Handlers {
	bones := &boneBuilder{state: s}
	morphs := &morphBuilder{state: s}
	return parser.Handlers{
		Basic:     &headerBuilder{state: s},
		Shape:     &shapeBuilder{state: s},
		Material:  &materialBuilder{state: s},
		Bone:      bones,
		Morph:     morphs,
		BoneGroup: &groupBuilder{state: s},
		English:   &englishBuilder{state: s},
		Toon:      &toonBuilder{state: s},
		Rigid:     &rigidBuilder{state: s},
		Joint:     &jointBuilder{state: s},
	}
}

// bone returns an existing bone by id.
func (s *state) bone(id int) (*pmd.Bone, error) {
	if id < 0 || id >= len(s.m.Bones) {
		return nil, mmd.NewFormatError("bone id %d out of range", id)
	}
	return s.m.Bones[id], nil
}

// growBones extends the bone list with default bones so that id is valid.
func (s *state) growBones(id int) (*pmd.Bone, error) {
	if id < 0 || id >= pmd.MaxBone {
		return nil, mmd.NewFormatError("bone id %d out of range", id)
	}
	for len(s.m.Bones) <= id {
		b := pmd.NewBone()
		b.SetSerialNumber(len(s.m.Bones))
		s.m.Bones = append(s.m.Bones, b)
	}
	return s.m.Bones[id], nil
}

func (s *state) vertex(id int) (*pmd.Vertex, error) {
	if id < 0 || id >= len(s.m.Vertices) {
		return nil, mmd.NewFormatError("vertex id %d out of range", id)
	}
	return s.m.Vertices[id], nil
}

func (s *state) finish() {
	if n := len(s.m.Bones) - s.declaredBones; n > 0 {
		s.log.Warn("placeholder bones added for vertex weights",
			zap.Int("declared", s.declaredBones), zap.Int("bones", len(s.m.Bones)))
	}
	s.m.Renumber()
}

// loops ignores loop notifications.
type loops struct{}

func (loops) LoopStart(kind parser.Loop, count int) error { return nil }
func (loops) LoopNext(kind parser.Loop) error              { return nil }
func (loops) LoopEnd(kind parser.Loop) error               { return nil }

func vec2(v [2]float32) pmd.Vector2 {
	return pmd.Vector2{X: v[0], Y: v[1]}
}

func vec3(v [3]float32) pmd.Vector3 {
	return pmd.Vector3{X: v[0], Y: v[1], Z: v[2]}
}
