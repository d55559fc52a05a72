// Package exporter writes a pmd.Model in the .pmd binary layout.
package exporter

import (
	"bytes"
	"io"
	"os"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/parser"
)

var (
	fillerFD  = []byte{0x00, 0xfd}
	fillerLF  = []byte{0x0a, 0x00, 0xfd}
	fillerNUL = []byte{0x00}
)

// Options controls the optional trailing sections.
type Options struct {
	// Extension is the last optional section written.
	Extension pmd.Extension
}

// DefaultOptions writes every section.
var DefaultOptions = Options{Extension: pmd.ExtPhysics}

// Writer is writer for .pmd data.
type Writer struct {
	s   *mmd.Sink
	opt Options
}

// NewWriter returns a writer. A nil opt selects DefaultOptions.
func NewWriter(w io.Writer, opt *Options) *Writer {
	if opt == nil {
		opt = &DefaultOptions
	}
	return &Writer{s: mmd.NewSink(w), opt: *opt}
}

// Write validates m and writes it. Serial numbers of m are reassigned,
// nothing else is modified. Errors for models that cannot be represented
// match mmd.ErrNotExportable.
func (w *Writer) Write(m *pmd.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	steps := []func(*pmd.Model) error{
		w.writeHeader,
		w.writeVertices,
		w.writeSurfaces,
		w.writeMaterials,
		w.writeBones,
		w.writeIKChains,
		w.writeMorphs,
		w.writeMorphOrder,
		w.writeBoneGroups,
	}
	if w.opt.Extension >= pmd.ExtEnglish {
		steps = append(steps, w.writeEnglish)
	}
	if w.opt.Extension >= pmd.ExtToon {
		steps = append(steps, w.writeToon)
	}
	if w.opt.Extension >= pmd.ExtPhysics {
		steps = append(steps, w.writeRigidBodies, w.writeJoints)
	}
	for _, step := range steps {
		if err := step(m); err != nil {
			return err
		}
		if err := w.s.Err(); err != nil {
			return err
		}
	}
	return w.s.Flush()
}

// Write writes m to w. The output is complete or, on error, nothing
// has been written.
func Write(m *pmd.Model, w io.Writer, opt *Options) error {
	var buf bytes.Buffer
	if err := NewWriter(&buf, opt).Write(m); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Save writes m to a file.
func Save(m *pmd.Model, path string, opt *Options) error {
	var buf bytes.Buffer
	if err := NewWriter(&buf, opt).Write(m); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (w *Writer) writeText(s string, size int) error {
	return w.s.WriteText(mmd.NormalizeLineBreaks(s), size, fillerFD)
}

func (w *Writer) writeVec3(v pmd.Vector3) {
	w.s.WriteFloats(v.X, v.Y, v.Z)
}

func (w *Writer) writeHeader(m *pmd.Model) error {
	w.s.WriteBytes([]byte(pmd.Magic))
	w.s.WriteFloat(m.Version)
	if err := w.writeText(m.Name.Primary, parser.NameSize); err != nil {
		return err
	}
	return w.writeText(m.Description.Primary, parser.DescriptionSize)
}

func (w *Writer) writeVertices(m *pmd.Model) error {
	w.s.WriteInt32(int32(len(m.Vertices)))
	for _, v := range m.Vertices {
		w.writeVec3(v.Position)
		w.writeVec3(v.Normal)
		w.s.WriteFloats(v.UV.X, v.UV.Y)
		w.s.WriteUint16(uint16(v.BoneA.SerialNumber()))
		w.s.WriteUint16(uint16(v.BoneB.SerialNumber()))
		w.s.WriteUint8(uint8(v.WeightA))
		w.s.WriteBool(!v.ShowEdge)
	}
	return nil
}

// writeSurfaces writes the surfaces in material order.
func (w *Writer) writeSurfaces(m *pmd.Model) error {
	n := 0
	for _, mat := range m.Materials {
		n += len(mat.Surfaces)
	}
	w.s.WriteInt32(int32(n * 3))
	for _, mat := range m.Materials {
		for _, s := range mat.Surfaces {
			for _, v := range s.Triangle() {
				w.s.WriteUint16(uint16(v.SerialNumber()))
			}
		}
	}
	return nil
}

func (w *Writer) writeMaterials(m *pmd.Model) error {
	w.s.WriteInt32(int32(len(m.Materials)))
	for _, mat := range m.Materials {
		d, sp, a := mat.Diffuse, mat.Specular(), mat.Ambient()
		w.s.WriteFloats(d.R, d.G, d.B, d.A)
		w.s.WriteFloat(mat.Shininess)
		w.s.WriteFloats(sp.R, sp.G, sp.B)
		w.s.WriteFloats(a.R, a.G, a.B)
		w.s.WriteUint8(uint8(mat.Shade.ToonIndex))
		w.s.WriteBool(mat.ShowEdge)
		w.s.WriteInt32(int32(len(mat.Surfaces) * 3))

		file := mmd.NormalizeLineBreaks(mat.Shade.ShadingFile())
		filler := fillerFD
		if file == "" {
			filler = fillerNUL
		}
		if err := w.s.WriteText(file, parser.ShadingSize, filler); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeBones(m *pmd.Model) error {
	w.s.WriteUint16(uint16(len(m.Bones)))
	for _, b := range m.Bones {
		if err := w.writeText(b.Name.Primary, parser.NameSize); err != nil {
			return err
		}
		// no parent is 0xffff, no tail is 0
		if b.Prev != nil {
			w.s.WriteUint16(uint16(b.Prev.SerialNumber()))
		} else {
			w.s.WriteUint16(pmd.MaxBone)
		}
		if b.Next != nil {
			w.s.WriteUint16(uint16(b.Next.SerialNumber()))
		} else {
			w.s.WriteUint16(0)
		}
		w.s.WriteUint8(uint8(b.Type))
		switch {
		case b.Type == pmd.BoneLinkedRot:
			w.s.WriteUint16(uint16(b.RotationRatio))
		case b.IK != nil:
			w.s.WriteUint16(uint16(b.IK.SerialNumber()))
		default:
			w.s.WriteUint16(0)
		}
		w.writeVec3(b.Position)
	}
	return nil
}

func (w *Writer) writeIKChains(m *pmd.Model) error {
	w.s.WriteUint16(uint16(len(m.IKChains)))
	for _, ik := range m.IKChains {
		w.s.WriteUint16(uint16(ik.IKBone.SerialNumber()))
		w.s.WriteUint16(uint16(ik.Target().SerialNumber()))
		affected := ik.Affected()
		w.s.WriteUint8(uint8(len(affected)))
		w.s.WriteUint16(uint16(ik.Depth))
		w.s.WriteFloat(ik.Weight)
		for _, b := range affected {
			w.s.WriteUint16(uint16(b.SerialNumber()))
		}
	}
	return nil
}

// writeMorphs writes the base morph built from every morphed vertex followed
// by the morphs grouped by type.
func (w *Writer) writeMorphs(m *pmd.Model) error {
	morphs := m.MorphsInFileOrder()
	if len(morphs) == 0 {
		w.s.WriteUint16(0)
		return nil
	}
	base := m.MergeMorphVertices()
	w.s.WriteUint16(uint16(len(morphs) + 1))
	if err := w.writeText("base", parser.NameSize); err != nil {
		return err
	}
	w.s.WriteInt32(int32(len(base)))
	w.s.WriteUint8(uint8(pmd.MorphBase))
	for _, v := range base {
		w.s.WriteInt32(int32(v.SerialNumber()))
		w.writeVec3(v.Position)
	}

	for _, p := range morphs {
		if err := w.writeText(p.Name.Primary, parser.NameSize); err != nil {
			return err
		}
		w.s.WriteInt32(int32(len(p.Vertices)))
		w.s.WriteUint8(uint8(p.Type))
		for _, mv := range p.Vertices {
			w.s.WriteInt32(int32(mv.SerialNumber()))
			w.writeVec3(mv.Offset)
		}
	}
	return nil
}

// writeMorphOrder writes the display order with the types reversed, as
// the reference editor does.
func (w *Writer) writeMorphOrder(m *pmd.Model) error {
	w.s.WriteUint8(uint8(len(m.Morphs)))
	for i := len(pmd.MorphTypes) - 1; i >= 0; i-- {
		for _, p := range m.MorphsOf(pmd.MorphTypes[i]) {
			w.s.WriteUint16(uint16(p.SerialNumber()))
		}
	}
	return nil
}

// writeBoneGroups writes every group but the default one.
func (w *Writer) writeBoneGroups(m *pmd.Model) error {
	groups := m.BoneGroups[1:]
	w.s.WriteUint8(uint8(len(groups)))
	for _, g := range groups {
		if err := w.s.WriteText(mmd.NormalizeLineBreaks(g.Name.Primary), parser.BoneGroupNameSize, fillerLF); err != nil {
			return err
		}
	}
	n := 0
	for _, g := range groups {
		n += len(g.Bones)
	}
	w.s.WriteInt32(int32(n))
	for _, g := range groups {
		for _, b := range g.Bones {
			w.s.WriteUint16(uint16(b.SerialNumber()))
			w.s.WriteUint8(uint8(g.SerialNumber()))
		}
	}
	return nil
}

func (w *Writer) writeEnglish(m *pmd.Model) error {
	enabled := m.HasGlobalText()
	w.s.WriteBool(enabled)
	if !enabled {
		return nil
	}
	if err := w.writeText(m.Name.Global, parser.NameSize); err != nil {
		return err
	}
	if err := w.writeText(m.Description.Global, parser.DescriptionSize); err != nil {
		return err
	}
	for _, b := range m.Bones {
		if err := w.writeText(b.Name.Global, parser.NameSize); err != nil {
			return err
		}
	}
	for _, p := range m.MorphsInFileOrder() {
		if err := w.writeText(p.Name.Global, parser.NameSize); err != nil {
			return err
		}
	}
	for _, g := range m.BoneGroups[1:] {
		if err := w.writeText(g.Name.Global, parser.BoneGroupNameSize); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeToon(m *pmd.Model) error {
	toon := m.Toon
	if toon == nil {
		toon = pmd.NewToonMap()
	}
	for i := 0; i < parser.ToonCount; i++ {
		if err := w.writeText(toon.Get(i), parser.ToonFileSize); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeRigidBodies(m *pmd.Model) error {
	w.s.WriteInt32(int32(len(m.RigidBodies)))
	for _, r := range m.RigidBodies {
		if err := w.writeText(r.Name.Primary, parser.NameSize); err != nil {
			return err
		}
		if r.Bone != nil {
			w.s.WriteUint16(uint16(r.Bone.SerialNumber()))
		} else {
			w.s.WriteUint16(pmd.MaxBone)
		}
		w.s.WriteUint8(uint8(r.Group.SerialNumber()))
		w.s.WriteUint16(r.CollisionMask())
		w.s.WriteUint8(uint8(r.Shape.Type))
		w.s.WriteFloats(r.Shape.Width, r.Shape.Height, r.Shape.Depth)
		w.writeVec3(r.Position)
		w.writeVec3(r.Rotation)
		d := r.Dynamics
		w.s.WriteFloats(d.Mass, d.DampingPosition, d.DampingRotation, d.Restitution, d.Friction)
		w.s.WriteUint8(uint8(r.Behavior))
	}
	return nil
}

func (w *Writer) writeRange(r *pmd.Range3) {
	w.s.WriteFloats(r.X.From(), r.Y.From(), r.Z.From())
	w.s.WriteFloats(r.X.To(), r.Y.To(), r.Z.To())
}

func (w *Writer) writeJoints(m *pmd.Model) error {
	w.s.WriteInt32(int32(len(m.Joints)))
	for _, j := range m.Joints {
		if err := w.writeText(j.Name.Primary, parser.NameSize); err != nil {
			return err
		}
		w.s.WriteInt32(int32(j.RigidA.SerialNumber()))
		w.s.WriteInt32(int32(j.RigidB.SerialNumber()))
		w.writeVec3(j.Position)
		w.writeVec3(j.Rotation)
		w.writeRange(&j.PositionRange)
		w.writeRange(&j.RotationRange)
		w.writeVec3(j.ElasticPosition)
		w.writeVec3(j.ElasticRotation)
	}
	return nil
}
