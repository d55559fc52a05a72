package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
)

var fd = []byte{0x00, 0xfd}

// sampleFile writes a physics level file: 3 vertices, 1 surface,
// 2 materials, 2 bones, 1 IK chain of length 1, base + 1 morph, 1 bone group,
// 1 grouped bone, English names, toon table, 1 rigid body and 1 joint.
func sampleFile(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := mmd.NewSink(&buf)
	text := func(s string, n int) {
		if err := w.WriteText(s, n, fd); err != nil {
			t.Fatal(err)
		}
	}
	w.WriteBytes([]byte("Pmd"))
	w.WriteFloat(1)
	text("sample", NameSize)
	text("line1\nline2", DescriptionSize)

	w.WriteInt32(3)
	for i := 0; i < 3; i++ {
		w.WriteFloats(float32(i), 0, 0, 0, 0, -1, 0, 0)
		w.WriteUint16(0)
		w.WriteUint16(1)
		w.WriteUint8(100)
		w.WriteBool(false)
	}
	w.WriteInt32(3)
	w.WriteUint16(0)
	w.WriteUint16(1)
	w.WriteUint16(2)

	w.WriteInt32(2)
	for i := 0; i < 2; i++ {
		w.WriteFloats(1, 1, 1, 1, 5, 0, 0, 0, 0.5, 0.5, 0.5)
		w.WriteUint8(0xff)
		w.WriteBool(true)
		w.WriteInt32(int32(3 * (1 - i)))
		text(fmt.Sprintf("tex%d.bmp", i), ShadingSize)
	}

	w.WriteUint16(2)
	text("center", NameSize)
	w.WriteUint16(0xffff)
	w.WriteUint16(1)
	w.WriteUint8(1)
	w.WriteUint16(0)
	w.WriteFloats(0, 1, 0)
	text("ik", NameSize)
	w.WriteUint16(0)
	w.WriteUint16(0)
	w.WriteUint8(2)
	w.WriteUint16(0)
	w.WriteFloats(0, 2, 0)

	w.WriteUint16(1)
	w.WriteUint16(1)
	w.WriteUint8(1)
	w.WriteUint16(15)
	w.WriteFloat(0.5)
	w.WriteUint16(0)

	w.WriteUint16(2)
	text("base", NameSize)
	w.WriteInt32(1)
	w.WriteUint8(0)
	w.WriteInt32(2)
	w.WriteFloats(2, 0, 0)
	text("smile", NameSize)
	w.WriteInt32(1)
	w.WriteUint8(3)
	w.WriteInt32(0)
	w.WriteFloats(0, 0.1, 0)

	w.WriteUint8(1)
	w.WriteUint16(1)

	w.WriteUint8(1)
	if err := w.WriteText("body", BoneGroupNameSize, []byte{0x0a, 0x00, 0xfd}); err != nil {
		t.Fatal(err)
	}
	w.WriteInt32(1)
	w.WriteUint16(1)
	w.WriteUint8(1)

	w.WriteBool(true)
	text("Sample", NameSize)
	text("english", DescriptionSize)
	text("Center", NameSize)
	text("IK", NameSize)
	text("Smile", NameSize)
	text("Body", BoneGroupNameSize)

	for i := 0; i < ToonCount; i++ {
		text(fmt.Sprintf("toon%02d.bmp", i+1), ToonFileSize)
	}

	w.WriteInt32(1)
	text("rigid", NameSize)
	w.WriteUint16(0)
	w.WriteUint8(2)
	w.WriteUint16(0xfffe)
	w.WriteUint8(1)
	w.WriteFloats(1, 2, 3, 0, 0, 0, 0, 0, 0, 1, 0.5, 0.5, 0, 0.5)
	w.WriteUint8(1)

	w.WriteInt32(1)
	text("joint", NameSize)
	w.WriteInt32(0)
	w.WriteInt32(0)
	for i := 0; i < 24; i++ {
		w.WriteFloat(float32(i))
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// recorder logs every notification as a line.
type recorder struct {
	events []string
	failOn string
}

func (r *recorder) add(format string, args ...interface{}) error {
	e := fmt.Sprintf(format, args...)
	r.events = append(r.events, e)
	if r.failOn != "" && e == r.failOn {
		return mmd.NewFormatError("rejected %s", e)
	}
	return nil
}

func (r *recorder) LoopStart(kind Loop, count int) error { return r.add("start %v %d", kind, count) }
func (r *recorder) LoopNext(kind Loop) error             { return r.add("next %v", kind) }
func (r *recorder) LoopEnd(kind Loop) error              { return r.add("end %v", kind) }
func (r *recorder) Header(h *Header) error {
	return r.add("header %s %g %q %q", h.Magic, h.Version, h.Name, h.Description)
}
func (r *recorder) Vertex(v *VertexRecord) error   { return r.add("vertex %v", v.Position) }
func (r *recorder) Surface(s *SurfaceRecord) error { return r.add("surface %v", s.Vertices) }
func (r *recorder) Material(m *MaterialRecord) error {
	return r.add("material %d %q", m.Surfaces, m.ShadingFile)
}
func (r *recorder) Bone(b *BoneRecord) error {
	return r.add("bone %q %d %d %d %d", b.Name, b.Prev, b.Next, b.Type, b.IK)
}
func (r *recorder) IK(ik *IKRecord) error {
	return r.add("ik %d %d %d %d %g", ik.Bone, ik.Target, ik.ChainLength, ik.Depth, ik.Weight)
}
func (r *recorder) IKChainBone(id int) error { return r.add("chain %d", id) }
func (r *recorder) Morph(m *MorphRecord) error {
	return r.add("morph %q %d %d", m.Name, m.Vertices, m.Type)
}
func (r *recorder) MorphVertex(v *MorphVertexRecord) error {
	return r.add("morph-vertex %d %v", v.ID, v.Offset)
}
func (r *recorder) MorphOrder(id int) error          { return r.add("order %d", id) }
func (r *recorder) BoneGroupName(name string) error { return r.add("group %q", name) }
func (r *recorder) GroupedBone(g *GroupedBoneRecord) error {
	return r.add("grouped %d %d", g.Bone, g.Group)
}
func (r *recorder) English(enabled bool) error { return r.add("english %v", enabled) }
func (r *recorder) EnglishHeader(name, desc string) error {
	return r.add("english-header %q %q", name, desc)
}
func (r *recorder) EnglishBoneName(s string) error      { return r.add("en-bone %q", s) }
func (r *recorder) EnglishMorphName(s string) error     { return r.add("en-morph %q", s) }
func (r *recorder) EnglishBoneGroupName(s string) error { return r.add("en-group %q", s) }
func (r *recorder) ToonFile(s string) error             { return r.add("toon %q", s) }
func (r *recorder) Rigid(rr *RigidRecord) error {
	return r.add("rigid %q %d %d %04x %d %d", rr.Name, rr.Bone, rr.Group, rr.CollisionMask, rr.Shape, rr.Behavior)
}
func (r *recorder) Joint(j *JointRecord) error {
	return r.add("joint %q %d %d %v %v", j.Name, j.RigidA, j.RigidB, j.PositionFrom, j.ElasticRotation)
}

func allHandlers(r *recorder) Handlers {
	return Handlers{
		Basic: r, Shape: r, Material: r, Bone: r, Morph: r,
		BoneGroup: r, English: r, Toon: r, Rigid: r, Joint: r,
	}
}

func contains(events []string, e string) bool {
	for _, s := range events {
		if s == e {
			return true
		}
	}
	return false
}

func TestParseAll(t *testing.T) {
	data := sampleFile(t)
	rec := &recorder{}
	p := New(bytes.NewReader(data), allHandlers(rec))
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if p.Extension() != pmd.ExtPhysics {
		t.Error("Extension", p.Extension())
	}
	if p.HasMoreData() {
		t.Error("no data should remain")
	}
	if p.Position() != int64(len(data)) {
		t.Error("Position", p.Position(), len(data))
	}

	want := []string{
		`header Pmd 1 "sample" "line1\nline2"`,
		"start vertex 3",
		"surface [0 1 2]",
		`material 1 "tex0.bmp"`,
		`material 0 "tex1.bmp"`,
		`bone "center" 65535 1 1 0`,
		"ik 1 1 1 15 0.5",
		"start ik-chain 1",
		"chain 0",
		"end ik-chain",
		`morph "base" 1 0`,
		"morph-vertex 2 [2 0 0]",
		`morph "smile" 1 3`,
		"order 1",
		`group "body"`,
		"grouped 1 1",
		"english true",
		`english-header "Sample" "english"`,
		`en-bone "IK"`,
		`en-morph "Smile"`,
		`en-group "Body"`,
		`toon "toon10.bmp"`,
		`rigid "rigid" 0 2 fffe 1 1`,
		`joint "joint" 0 0 [6 7 8] [21 22 23]`,
	}
	for _, e := range want {
		if !contains(rec.events, e) {
			t.Errorf("missing event %s", e)
		}
	}
	if err := p.Parse(); !errors.Is(err, ErrAlreadyParsed) {
		t.Error("second Parse", err)
	}
}

func TestParseLoopNesting(t *testing.T) {
	rec := &recorder{}
	if err := New(bytes.NewReader(sampleFile(t)), Handlers{Bone: rec}).Parse(); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"start bone 2",
		`bone "center" 65535 1 1 0`, "next bone",
		`bone "ik" 0 0 2 0`, "next bone",
		"end bone",
		"start ik 1",
		"ik 1 1 1 15 0.5",
		"start ik-chain 1", "chain 0", "next ik-chain", "end ik-chain",
		"next ik",
		"end ik",
	}
	if fmt.Sprint(rec.events) != fmt.Sprint(want) {
		t.Errorf("events\n got %v\nwant %v", rec.events, want)
	}
}

func TestParseSkipMaterials(t *testing.T) {
	data := sampleFile(t)
	rec := &recorder{}
	h := allHandlers(rec)
	h.Material = nil
	p := New(bytes.NewReader(data), h)
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	for _, e := range rec.events {
		if e == "start material 2" || e == `material 1 "tex0.bmp"` {
			t.Error("material section should not be decoded")
		}
	}
	if !contains(rec.events, `bone "ik" 0 0 2 0`) || !contains(rec.events, `joint "joint" 0 0 [6 7 8] [21 22 23]`) {
		t.Error("sections after the skipped one should be parsed")
	}
}

func TestParseSkipEverything(t *testing.T) {
	data := sampleFile(t)
	p := New(bytes.NewReader(data), Handlers{})
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if p.Position() != int64(len(data)) || p.Extension() != pmd.ExtPhysics {
		t.Error("skip should consume the exact byte span", p.Position(), len(data))
	}
}

func TestParseExtensionLevels(t *testing.T) {
	data := sampleFile(t)
	base := len(data) - 1 - (NameSize + DescriptionSize + 2*NameSize + NameSize + BoneGroupNameSize) -
		ToonCount*ToonFileSize - (4 + RigidSize) - (4 + JointSize)
	english := base + 1 + NameSize + DescriptionSize + 2*NameSize + NameSize + BoneGroupNameSize
	toon := english + ToonCount*ToonFileSize

	tests := []struct {
		size int
		ext  pmd.Extension
	}{
		{base, pmd.ExtBase},
		{english, pmd.ExtEnglish},
		{toon, pmd.ExtToon},
		{len(data), pmd.ExtPhysics},
	}
	for _, tt := range tests {
		t.Run(tt.ext.String(), func(t *testing.T) {
			p := New(bytes.NewReader(data[:tt.size]), Handlers{})
			if err := p.Parse(); err != nil {
				t.Fatal(err)
			}
			if p.Extension() != tt.ext {
				t.Error("Extension", p.Extension())
			}
		})
	}

	p := New(bytes.NewReader(append(append([]byte{}, data...), 1, 2, 3)), Handlers{})
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if !p.HasMoreData() {
		t.Error("trailing bytes should be reported")
	}
}

func TestParseTruncated(t *testing.T) {
	data := sampleFile(t)
	for _, size := range []int{2, 10, HeaderSize + 5, 300, len(data) / 2, len(data) - 1} {
		rec := &recorder{}
		err := New(bytes.NewReader(data[:size]), allHandlers(rec)).Parse()
		var eof *mmd.EOFError
		if !errors.As(err, &eof) || !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("size %d: expected EOF error, got %v", size, err)
		}
	}
}

func TestParseFormatErrors(t *testing.T) {
	data := sampleFile(t)

	bad := append([]byte("PMX"), data[3:]...)
	err := New(bytes.NewReader(bad), Handlers{}).Parse()
	if !errors.Is(err, mmd.ErrFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("bad magic", err)
	}

	// surface index count follows the header and 3 vertices
	off := HeaderSize + 4 + 3*VertexSize
	bad = append([]byte{}, data...)
	bad[off] = 4
	err = New(bytes.NewReader(bad), Handlers{}).Parse()
	var fe *mmd.FormatError
	if !errors.As(err, &fe) || fe.Offset != int64(off+4) {
		t.Error("indivisible surface count", err)
	}

	rec := &recorder{failOn: "chain 0"}
	err = New(bytes.NewReader(data), allHandlers(rec)).Parse()
	if !errors.As(err, &fe) || fe.Offset < 0 {
		t.Error("handler errors should carry the offset", err)
	}
}
