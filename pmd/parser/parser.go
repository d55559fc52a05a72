// Package parser decodes the .pmd binary layout into a stream of typed
// records delivered to per-section handlers.
package parser

import (
	"errors"
	"io"
	"strings"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
)

// ErrAlreadyParsed is returned by a second call to Parse.
var ErrAlreadyParsed = errors.New("parser: already parsed")

type stage struct {
	name     string
	ext      pmd.Extension
	optional bool
	run      func(p *Parser) error
}

// The optional stages run only while unread data remains.
var stages = []stage{
	{"header", pmd.ExtBase, false, (*Parser).parseHeader},
	{"shape", pmd.ExtBase, false, (*Parser).parseShape},
	{"material", pmd.ExtBase, false, (*Parser).parseMaterials},
	{"bone", pmd.ExtBase, false, (*Parser).parseBones},
	{"ik", pmd.ExtBase, false, (*Parser).parseIKs},
	{"morph", pmd.ExtBase, false, (*Parser).parseMorphs},
	{"morph order", pmd.ExtBase, false, (*Parser).parseMorphOrder},
	{"bone group", pmd.ExtBase, false, (*Parser).parseBoneGroupNames},
	{"grouped bone", pmd.ExtBase, false, (*Parser).parseGroupedBones},
	{"english", pmd.ExtEnglish, true, (*Parser).parseEnglish},
	{"toon", pmd.ExtToon, true, (*Parser).parseToon},
	{"physics", pmd.ExtPhysics, true, (*Parser).parsePhysics},
}

// Parser is a single use decoder of one .pmd stream.
type Parser struct {
	src     *mmd.Source
	h       Handlers
	parsed  bool
	reached pmd.Extension

	boneCount  int
	morphCount int
	groupCount int
}

// New returns a parser reading r and reporting to h.
func New(r io.Reader, h Handlers) *Parser {
	return &Parser{src: mmd.NewSource(r), h: h}
}

// Position returns the number of bytes consumed.
func (p *Parser) Position() int64 {
	return p.src.Position()
}

// Extension returns the last section level read by Parse.
func (p *Parser) Extension() pmd.Extension {
	return p.reached
}

// HasMoreData reports whether bytes remain after the last understood section.
func (p *Parser) HasMoreData() bool {
	return p.src.HasMore()
}

// Parse reads the whole stream. Structural failures match mmd.ErrFormat.
func (p *Parser) Parse() error {
	if p.parsed {
		return ErrAlreadyParsed
	}
	p.parsed = true

	for _, st := range stages {
		if st.optional && !p.src.HasMore() {
			break
		}
		if err := st.run(p); err != nil {
			return p.withOffset(err)
		}
		if err := p.src.Err(); err != nil {
			return err
		}
		p.reached = st.ext
	}
	return p.src.Err()
}

func (p *Parser) withOffset(err error) error {
	var fe *mmd.FormatError
	if errors.As(err, &fe) && fe.Offset < 0 {
		fe.Offset = p.src.Position()
	}
	return err
}

func (p *Parser) formatError(msg string) error {
	return &mmd.FormatError{Msg: msg, Offset: p.src.Position()}
}

func (p *Parser) readCount32(what string) (int, error) {
	n := p.src.ReadInt32()
	if err := p.src.Err(); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, p.formatError("negative " + what + " count")
	}
	return int(n), nil
}

func (p *Parser) readCount16() (int, error) {
	n := int(p.src.ReadUint16())
	return n, p.src.Err()
}

func (p *Parser) readCount8() (int, error) {
	n := int(p.src.ReadUint8())
	return n, p.src.Err()
}

// loop runs body count times between the loop notifications of h.
// body must return the read error before notifying h of the element.
func loop(h LoopHandler, kind Loop, count int, body func() error) error {
	if err := h.LoopStart(kind, count); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if err := body(); err != nil {
			return err
		}
		if err := h.LoopNext(kind); err != nil {
			return err
		}
	}
	return h.LoopEnd(kind)
}

func (p *Parser) readVec3(v *[3]float32) {
	p.src.ReadFloats(v[:])
}

func (p *Parser) parseHeader() error {
	var magic [3]byte
	p.src.ReadBytes(magic[:])
	if err := p.src.Err(); err != nil {
		return err
	}
	if string(magic[:]) != pmd.Magic {
		return &mmd.FormatError{Msg: "unsupported format: bad magic", Offset: 0}
	}
	h := &Header{Magic: string(magic[:])}
	h.Version = p.src.ReadFloat()
	h.Name = p.src.ReadText(NameSize)
	h.Description = mmd.NormalizeLineBreaks(p.src.ReadText(DescriptionSize))
	if err := p.src.Err(); err != nil {
		return err
	}
	if p.h.Basic == nil {
		return nil
	}
	return p.h.Basic.Header(h)
}

func (p *Parser) readVertex(r *VertexRecord) {
	p.readVec3(&r.Position)
	p.readVec3(&r.Normal)
	p.src.ReadFloats(r.UV[:])
	r.BoneA = int(p.src.ReadUint16())
	r.BoneB = int(p.src.ReadUint16())
	r.Weight = int(p.src.ReadUint8())
	r.HideEdge = p.src.ReadBool()
}

func (p *Parser) parseShape() error {
	vn, err := p.readCount32("vertex")
	if err != nil {
		return err
	}
	h := p.h.Shape
	if h == nil {
		p.src.Skip(int64(vn) * VertexSize)
	} else {
		var r VertexRecord
		err = loop(h, LoopVertex, vn, func() error {
			p.readVertex(&r)
			if err := p.src.Err(); err != nil {
				return err
			}
			return h.Vertex(&r)
		})
		if err != nil {
			return err
		}
	}

	in, err := p.readCount32("surface index")
	if err != nil {
		return err
	}
	if in%3 != 0 {
		return p.formatError("surface index count is not a multiple of 3")
	}
	if h == nil {
		p.src.Skip(int64(in) * 2)
		return nil
	}
	var r SurfaceRecord
	return loop(h, LoopSurface, in/3, func() error {
		for i := range r.Vertices {
			r.Vertices[i] = int(p.src.ReadUint16())
		}
		if err := p.src.Err(); err != nil {
			return err
		}
		return h.Surface(&r)
	})
}

func (p *Parser) readMaterial(r *MaterialRecord) error {
	p.src.ReadFloats(r.Diffuse[:])
	r.Shininess = p.src.ReadFloat()
	p.readVec3(&r.Specular)
	p.readVec3(&r.Ambient)
	r.Toon = int(p.src.ReadUint8())
	r.Edge = p.src.ReadBool()
	indices := p.src.ReadInt32()
	r.ShadingFile = p.src.ReadText(ShadingSize)
	if err := p.src.Err(); err != nil {
		return err
	}
	if indices < 0 || indices%3 != 0 {
		return p.formatError("material surface index count is not a multiple of 3")
	}
	r.Surfaces = int(indices) / 3
	return nil
}

func (p *Parser) parseMaterials() error {
	n, err := p.readCount32("material")
	if err != nil {
		return err
	}
	h := p.h.Material
	if h == nil {
		p.src.Skip(int64(n) * MaterialSize)
		return nil
	}
	var r MaterialRecord
	return loop(h, LoopMaterial, n, func() error {
		if err := p.readMaterial(&r); err != nil {
			return err
		}
		return h.Material(&r)
	})
}

func (p *Parser) readBone(r *BoneRecord) {
	r.Name = p.src.ReadText(NameSize)
	r.Prev = int(p.src.ReadUint16())
	r.Next = int(p.src.ReadUint16())
	r.Type = int(p.src.ReadUint8())
	r.IK = int(p.src.ReadUint16())
	p.readVec3(&r.Position)
}

func (p *Parser) parseBones() error {
	n, err := p.readCount16()
	if err != nil {
		return err
	}
	p.boneCount = n
	h := p.h.Bone
	if h == nil {
		p.src.Skip(int64(n) * BoneSize)
		return nil
	}
	var r BoneRecord
	return loop(h, LoopBone, n, func() error {
		p.readBone(&r)
		if err := p.src.Err(); err != nil {
			return err
		}
		return h.Bone(&r)
	})
}

func (p *Parser) parseIKs() error {
	n, err := p.readCount16()
	if err != nil {
		return err
	}
	h := p.h.Bone
	if h == nil {
		for i := 0; i < n && p.src.Err() == nil; i++ {
			p.src.Skip(4)
			chain := int64(p.src.ReadUint8())
			p.src.Skip(2 + 4 + chain*2)
		}
		return nil
	}
	var r IKRecord
	return loop(h, LoopIK, n, func() error {
		r.Bone = int(p.src.ReadUint16())
		r.Target = int(p.src.ReadUint16())
		r.ChainLength = int(p.src.ReadUint8())
		r.Depth = int(p.src.ReadUint16())
		r.Weight = p.src.ReadFloat()
		if err := p.src.Err(); err != nil {
			return err
		}
		if err := h.IK(&r); err != nil {
			return err
		}
		return loop(h, LoopIKChain, r.ChainLength, func() error {
			id := int(p.src.ReadUint16())
			if err := p.src.Err(); err != nil {
				return err
			}
			return h.IKChainBone(id)
		})
	})
}

func (p *Parser) parseMorphs() error {
	n, err := p.readCount16()
	if err != nil {
		return err
	}
	p.morphCount = n
	h := p.h.Morph
	if h == nil {
		for i := 0; i < n && p.src.Err() == nil; i++ {
			p.src.Skip(NameSize)
			vn, err := p.readCount32("morph vertex")
			if err != nil {
				return err
			}
			p.src.Skip(1 + int64(vn)*MorphVertexSize)
		}
		return nil
	}
	var r MorphRecord
	var mv MorphVertexRecord
	return loop(h, LoopMorph, n, func() error {
		r.Name = p.src.ReadText(NameSize)
		vn, err := p.readCount32("morph vertex")
		if err != nil {
			return err
		}
		r.Vertices = vn
		r.Type = int(p.src.ReadUint8())
		if err := p.src.Err(); err != nil {
			return err
		}
		if err := h.Morph(&r); err != nil {
			return err
		}
		return loop(h, LoopMorphVertex, vn, func() error {
			mv.ID = int(p.src.ReadInt32())
			p.readVec3(&mv.Offset)
			if err := p.src.Err(); err != nil {
				return err
			}
			return h.MorphVertex(&mv)
		})
	})
}

func (p *Parser) parseMorphOrder() error {
	n, err := p.readCount8()
	if err != nil {
		return err
	}
	h := p.h.Morph
	if h == nil {
		p.src.Skip(int64(n) * MorphOrderSize)
		return nil
	}
	return loop(h, LoopMorphOrder, n, func() error {
		id := int(p.src.ReadUint16())
		if err := p.src.Err(); err != nil {
			return err
		}
		return h.MorphOrder(id)
	})
}

func (p *Parser) parseBoneGroupNames() error {
	n, err := p.readCount8()
	if err != nil {
		return err
	}
	p.groupCount = n
	h := p.h.BoneGroup
	if h == nil {
		p.src.Skip(int64(n) * BoneGroupNameSize)
		return nil
	}
	return loop(h, LoopBoneGroup, n, func() error {
		name := strings.TrimSuffix(p.src.ReadText(BoneGroupNameSize), "\n")
		if err := p.src.Err(); err != nil {
			return err
		}
		return h.BoneGroupName(name)
	})
}

func (p *Parser) parseGroupedBones() error {
	n, err := p.readCount32("grouped bone")
	if err != nil {
		return err
	}
	h := p.h.BoneGroup
	if h == nil {
		p.src.Skip(int64(n) * GroupedBoneSize)
		return nil
	}
	var r GroupedBoneRecord
	return loop(h, LoopGroupedBone, n, func() error {
		r.Bone = int(p.src.ReadUint16())
		r.Group = int(p.src.ReadUint8())
		if err := p.src.Err(); err != nil {
			return err
		}
		return h.GroupedBone(&r)
	})
}

func (p *Parser) englishMorphCount() int {
	if p.morphCount == 0 {
		return 0
	}
	return p.morphCount - 1
}

func (p *Parser) parseEnglish() error {
	enabled := p.src.ReadBool()
	if err := p.src.Err(); err != nil {
		return err
	}
	h := p.h.English
	if h == nil {
		if enabled {
			p.src.Skip(NameSize + DescriptionSize +
				int64(p.boneCount)*NameSize +
				int64(p.englishMorphCount())*NameSize +
				int64(p.groupCount)*BoneGroupNameSize)
		}
		return nil
	}
	if err := h.English(enabled); err != nil || !enabled {
		return err
	}

	name := p.src.ReadText(NameSize)
	desc := mmd.NormalizeLineBreaks(p.src.ReadText(DescriptionSize))
	if err := p.src.Err(); err != nil {
		return err
	}
	if err := h.EnglishHeader(name, desc); err != nil {
		return err
	}
	readNames := func(kind Loop, count, size int, emit func(string) error) error {
		return loop(h, kind, count, func() error {
			s := p.src.ReadText(size)
			if err := p.src.Err(); err != nil {
				return err
			}
			return emit(s)
		})
	}
	if err := readNames(LoopEnglishBone, p.boneCount, NameSize, h.EnglishBoneName); err != nil {
		return err
	}
	if err := readNames(LoopEnglishMorph, p.englishMorphCount(), NameSize, h.EnglishMorphName); err != nil {
		return err
	}
	return readNames(LoopEnglishBoneGroup, p.groupCount, BoneGroupNameSize, h.EnglishBoneGroupName)
}

func (p *Parser) parseToon() error {
	h := p.h.Toon
	if h == nil {
		p.src.Skip(ToonCount * ToonFileSize)
		return nil
	}
	return loop(h, LoopToon, ToonCount, func() error {
		s := p.src.ReadText(ToonFileSize)
		if err := p.src.Err(); err != nil {
			return err
		}
		return h.ToonFile(s)
	})
}

func (p *Parser) readRigid(r *RigidRecord) {
	r.Name = p.src.ReadText(NameSize)
	r.Bone = int(p.src.ReadUint16())
	r.Group = int(p.src.ReadUint8())
	r.CollisionMask = p.src.ReadUint16()
	r.Shape = int(p.src.ReadUint8())
	p.readVec3(&r.Size)
	p.readVec3(&r.Position)
	p.readVec3(&r.Rotation)
	r.Mass = p.src.ReadFloat()
	r.DampPosition = p.src.ReadFloat()
	r.DampRotation = p.src.ReadFloat()
	r.Restitution = p.src.ReadFloat()
	r.Friction = p.src.ReadFloat()
	r.Behavior = int(p.src.ReadUint8())
}

func (p *Parser) readJoint(r *JointRecord) {
	r.Name = p.src.ReadText(NameSize)
	r.RigidA = int(p.src.ReadInt32())
	r.RigidB = int(p.src.ReadInt32())
	p.readVec3(&r.Position)
	p.readVec3(&r.Rotation)
	p.readVec3(&r.PositionFrom)
	p.readVec3(&r.PositionTo)
	p.readVec3(&r.RotationFrom)
	p.readVec3(&r.RotationTo)
	p.readVec3(&r.ElasticPosition)
	p.readVec3(&r.ElasticRotation)
}

func (p *Parser) parsePhysics() error {
	n, err := p.readCount32("rigid")
	if err != nil {
		return err
	}
	if h := p.h.Rigid; h == nil {
		p.src.Skip(int64(n) * RigidSize)
	} else {
		var r RigidRecord
		err := loop(h, LoopRigid, n, func() error {
			p.readRigid(&r)
			if err := p.src.Err(); err != nil {
				return err
			}
			return h.Rigid(&r)
		})
		if err != nil {
			return err
		}
	}

	n, err = p.readCount32("joint")
	if err != nil {
		return err
	}
	h := p.h.Joint
	if h == nil {
		p.src.Skip(int64(n) * JointSize)
		return nil
	}
	var r JointRecord
	return loop(h, LoopJoint, n, func() error {
		p.readJoint(&r)
		if err := p.src.Err(); err != nil {
			return err
		}
		return h.Joint(&r)
	})
}
