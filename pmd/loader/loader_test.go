package loader

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
)

type rawFile struct {
	t   *testing.T
	buf bytes.Buffer
	*mmd.Sink
}

func newRawFile(t *testing.T) *rawFile {
	f := &rawFile{t: t}
	f.Sink = mmd.NewSink(&f.buf)
	return f
}

func (f *rawFile) text(s string, n int) {
	if err := f.WriteText(s, n, []byte{0, 0xfd}); err != nil {
		f.t.Fatal(err)
	}
}

func (f *rawFile) header(name string) {
	f.WriteBytes([]byte("Pmd"))
	f.WriteFloat(1)
	f.text(name, 20)
	f.text("comment\r\nline2", 256)
}

func (f *rawFile) vertex(x float32, boneA, boneB uint16, weight uint8, hideEdge bool) {
	f.WriteFloats(x, 0, 0, 0, 0, 1, 0, 0)
	f.WriteUint16(boneA)
	f.WriteUint16(boneB)
	f.WriteUint8(weight)
	f.WriteBool(hideEdge)
}

func (f *rawFile) bone(name string, prev, next uint16, typ uint8, ik uint16) {
	f.text(name, 20)
	f.WriteUint16(prev)
	f.WriteUint16(next)
	f.WriteUint8(typ)
	f.WriteUint16(ik)
	f.WriteFloats(0, 0, 0)
}

func (f *rawFile) data() []byte {
	if err := f.Flush(); err != nil {
		f.t.Fatal(err)
	}
	return f.buf.Bytes()
}

// boxFile has 4 vertices weighted to bones 0 and 50 but no bone records.
func boxFile(t *testing.T) *rawFile {
	f := newRawFile(t)
	f.header("Box")
	f.WriteInt32(4)
	for i := 0; i < 4; i++ {
		f.vertex(float32(i), 0, 50, 100, i == 3)
	}
	f.WriteInt32(6)
	for _, id := range []uint16{0, 1, 2, 2, 1, 3} {
		f.WriteUint16(id)
	}
	f.WriteInt32(1)
	f.WriteFloats(1, 0, 0, 0.5, 10, 1, 1, 1, 0.2, 0.2, 0.2)
	f.WriteUint8(0xff)
	f.WriteBool(true)
	f.WriteInt32(6)
	f.text("box.bmp*box.sph", 20)

	f.WriteUint16(0) // bones
	f.WriteUint16(0) // IK
	f.WriteUint16(0) // morphs
	f.WriteUint8(0)  // morph order
	f.WriteUint8(0)  // bone groups
	f.WriteInt32(0)  // grouped bones
	return f
}

func TestLoadBox(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(WithLogger(zap.New(core)))
	m, err := l.Load(bytes.NewReader(boxFile(t).data()))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name.Primary != "Box" || m.Version != 1 || m.Description.Primary != "comment\nline2" {
		t.Error("header", m.Name, m.Version, m.Description)
	}
	if len(m.Bones) != 51 {
		t.Fatal("placeholder bones", len(m.Bones))
	}
	for i, b := range m.Bones {
		if b == nil || b.SerialNumber() != i {
			t.Fatal("bone list must be dense", i)
		}
	}
	v := m.Vertices[0]
	if v.BoneA != m.Bones[0] || v.BoneB != m.Bones[50] || v.WeightA != 100 {
		t.Error("vertex bones", v)
	}
	if !m.Vertices[0].ShowEdge || m.Vertices[3].ShowEdge {
		t.Error("edge flag is stored inverted")
	}
	if len(m.Surfaces) != 2 || m.Surfaces[1].Vertex(2) != m.Vertices[3] {
		t.Error("surfaces", m.Surfaces)
	}
	mat := m.Materials[0]
	if len(mat.Surfaces) != 2 || mat.Surfaces[0] != m.Surfaces[0] {
		t.Error("material surfaces", len(mat.Surfaces))
	}
	if mat.Shade.Texture != "box.bmp" || mat.Shade.SphereMap != "box.sph" || mat.Shade.ToonIndex != pmd.ToonIndexDefault {
		t.Error("shading", mat.Shade)
	}
	if mat.Diffuse.A != 0.5 || mat.Specular().A != 1 || mat.Ambient().R != 0.2 {
		t.Error("colors", mat)
	}
	if len(m.DefaultBoneGroup().Bones) != 51 {
		t.Error("every bone should be in the default group", len(m.DefaultBoneGroup().Bones))
	}
	if l.HasMoreData() || l.Extension() != pmd.ExtBase {
		t.Error("base file", l.HasMoreData(), l.Extension())
	}
	if logs.FilterMessage("placeholder bones added for vertex weights").Len() != 1 {
		t.Error("placeholder warning", logs.All())
	}

	if _, err := l.Load(bytes.NewReader(boxFile(t).data())); !errors.Is(err, ErrAlreadyLoaded) {
		t.Error("loader is single use", err)
	}
}

func TestLoadTruncated(t *testing.T) {
	data := boxFile(t).data()
	for n := 0; n < len(data); n++ {
		m, err := Load(bytes.NewReader(data[:n]))
		if m != nil || !errors.Is(err, io.ErrUnexpectedEOF) || !errors.Is(err, mmd.ErrFormat) {
			t.Fatalf("size %d: %v", n, err)
		}
	}
}

func TestLoadHugeCount(t *testing.T) {
	vertices := newRawFile(t)
	vertices.header("huge")
	vertices.WriteInt32(0x7fffffff)

	surfaces := newRawFile(t)
	surfaces.header("huge")
	surfaces.WriteInt32(0)
	surfaces.WriteInt32(0x7ffffffe)

	morphVertices := newRawFile(t)
	morphVertices.header("huge")
	morphVertices.WriteInt32(0)  // vertices
	morphVertices.WriteInt32(0)  // surfaces
	morphVertices.WriteInt32(0)  // materials
	morphVertices.WriteUint16(0) // bones
	morphVertices.WriteUint16(0) // IK
	morphVertices.WriteUint16(1)
	morphVertices.text("brow", 20)
	morphVertices.WriteInt32(0x7fffffff)
	morphVertices.WriteUint8(uint8(pmd.MorphEyebrow))

	tests := []struct {
		name string
		f    *rawFile
	}{
		{"vertices", vertices},
		{"surfaces", surfaces},
		{"morph vertices", morphVertices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Load(bytes.NewReader(tt.f.data()))
			var eof *mmd.EOFError
			if m != nil || !errors.As(err, &eof) || !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Error("count larger than the file", err)
			}
		})
	}
}

func linkedFile(t *testing.T) *rawFile {
	f := newRawFile(t)
	f.header("links")
	f.WriteInt32(3)
	for i := 0; i < 3; i++ {
		f.vertex(float32(i), 0, 1, 50, false)
	}
	f.WriteInt32(3)
	f.WriteUint16(0)
	f.WriteUint16(1)
	f.WriteUint16(2)
	f.WriteInt32(0)

	f.WriteUint16(3)
	f.bone("root", 0xffff, 1, 0, 0)
	f.bone("linked", 0, 0, uint8(pmd.BoneLinkedRot), 40)
	f.bone("under", 1, 2, uint8(pmd.BoneUnderIK), 1)

	f.WriteUint16(1)
	f.WriteUint16(2)
	f.WriteUint16(1)
	f.WriteUint8(1)
	f.WriteUint16(10)
	f.WriteFloat(0.25)
	f.WriteUint16(0)

	f.WriteUint16(4)
	f.text("base", 20)
	f.WriteInt32(2)
	f.WriteUint8(0)
	f.WriteInt32(2)
	f.WriteFloats(2, 0, 0)
	f.WriteInt32(0)
	f.WriteFloats(0, 0, 0)
	f.text("a", 20)
	f.WriteInt32(1)
	f.WriteUint8(uint8(pmd.MorphLip))
	f.WriteInt32(1)
	f.WriteFloats(0, 1, 0)
	f.text("blink", 20)
	f.WriteInt32(1)
	f.WriteUint8(uint8(pmd.MorphEye))
	f.WriteInt32(0)
	f.WriteFloats(0, -1, 0)
	f.text("dropped", 20)
	f.WriteInt32(0)
	f.WriteUint8(uint8(pmd.MorphExtra))

	f.WriteUint8(2)
	f.WriteUint16(1)
	f.WriteUint16(2)

	f.WriteUint8(1)
	if err := f.WriteText("arm", 50, []byte{0x0a, 0, 0xfd}); err != nil {
		t.Fatal(err)
	}
	f.WriteInt32(1)
	f.WriteUint16(2)
	f.WriteUint8(1)
	return f
}

func TestLoadLinks(t *testing.T) {
	m, err := Load(bytes.NewReader(linkedFile(t).data()))
	if err != nil {
		t.Fatal(err)
	}
	root, linked, under := m.Bones[0], m.Bones[1], m.Bones[2]
	if root.Prev != nil || root.Next != linked || root.IK != nil {
		t.Error("0xffff means no parent, next 1 is a bone", root)
	}
	if linked.Prev != root || linked.Next != nil {
		t.Error("prev 0 is the first bone, next 0 means none", linked)
	}
	if linked.IK != nil || linked.RotationRatio != 40 {
		t.Error("linked rotation ratio", linked.RotationRatio)
	}
	if under.IK != linked || under.Next != under {
		t.Error("IK link", under)
	}

	if len(m.IKChains) != 1 {
		t.Fatal("IK chains", len(m.IKChains))
	}
	ik := m.IKChains[0]
	if ik.IKBone != under || ik.Target() != linked || len(ik.Affected()) != 1 || ik.Affected()[0] != root {
		t.Error("IK chain", ik)
	}
	if ik.Depth != 10 || ik.Weight != 0.25 {
		t.Error("IK params", ik.Depth, ik.Weight)
	}

	if len(m.BoneGroups) != 2 || m.BoneGroups[1].Name.Primary != "arm" {
		t.Fatal("bone groups", m.BoneGroups)
	}
	if g := m.BoneGroups[1]; len(g.Bones) != 1 || g.Bones[0] != under {
		t.Error("explicit group", g.Bones)
	}
	def := m.DefaultBoneGroup().Bones
	if len(def) != 2 || def[0] != root || def[1] != linked {
		t.Error("ungrouped bones go to the default group", def)
	}

	if len(m.Morphs) != 2 {
		t.Fatal("morph missing from the order list should be dropped", m.Morphs)
	}
	blink, a := m.Morphs[0], m.Morphs[1]
	if blink.Name.Primary != "blink" || a.Name.Primary != "a" {
		t.Error("morphs are grouped by type", blink, a)
	}
	if blink.SerialNumber() != 1 || a.SerialNumber() != 2 {
		t.Error("morph serials", blink.SerialNumber(), a.SerialNumber())
	}
	if a.Vertices[0].Vertex != m.Vertices[0] || a.Vertices[0].SerialNumber() != 1 {
		t.Error("morph vertex indexes the base morph", a.Vertices[0])
	}
	if blink.Vertices[0].Vertex != m.Vertices[2] || blink.Vertices[0].Offset.Y != -1 {
		t.Error("morph vertex", blink.Vertices[0])
	}
}

func TestLoadErrors(t *testing.T) {
	f := boxFile(t)
	data := f.data()

	bad := append([]byte{}, data...)
	// first surface index
	bad[283+4+4*38+4] = 9
	if _, err := Load(bytes.NewReader(bad)); !errors.Is(err, mmd.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("vertex id out of range", err)
	}

	bad = append([]byte{}, data...)
	// second index of the first surface equals the first
	bad[283+4+4*38+4+2] = 0
	var fe *mmd.FormatError
	if _, err := Load(bytes.NewReader(bad)); !errors.As(err, &fe) || fe.Offset <= 0 {
		t.Error("degenerate surface", err)
	}

	bad = append([]byte{}, data...)
	// material surface index count
	bad[len(bad)-12-20-4] = 9
	if _, err := Load(bytes.NewReader(bad)); !errors.Is(err, mmd.ErrFormat) {
		t.Error("material surface count", err)
	}
}

func TestLoadTrailingData(t *testing.T) {
	f := boxFile(t)
	f.WriteBool(false)
	for i := 0; i < 10; i++ {
		f.text("toon.bmp", 100)
	}
	f.WriteInt32(0)
	f.WriteInt32(0)
	f.WriteBytes([]byte{1, 2, 3})

	l := New()
	m, err := l.Load(bytes.NewReader(f.data()))
	if err != nil {
		t.Fatal(err)
	}
	if !l.HasMoreData() || l.Extension() != pmd.ExtPhysics {
		t.Error("HasMoreData", l.HasMoreData(), l.Extension())
	}
	if m.Toon.Get(3) != "toon.bmp" || m.Toon.IsDefault() {
		t.Error("toon table", m.Toon.Get(3))
	}
	if m.HasGlobalText() {
		t.Error("English flag was off")
	}
}
