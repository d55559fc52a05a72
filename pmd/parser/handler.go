package parser

// LoopHandler receives the structure of every list of a section.
// LoopStart is sent before the first element, LoopNext after each element
// and LoopEnd after the last. Nested lists carry their own Loop kind.
type LoopHandler interface {
	LoopStart(kind Loop, count int) error
	LoopNext(kind Loop) error
	LoopEnd(kind Loop) error
}

type BasicHandler interface {
	Header(h *Header) error
}

type ShapeHandler interface {
	LoopHandler
	Vertex(r *VertexRecord) error
	Surface(r *SurfaceRecord) error
}

type MaterialHandler interface {
	LoopHandler
	Material(r *MaterialRecord) error
}

// BoneHandler receives the bone list and the IK list. IKChainBone is sent
// inside the LoopIKChain loop that follows each IK record.
type BoneHandler interface {
	LoopHandler
	Bone(r *BoneRecord) error
	IK(r *IKRecord) error
	IKChainBone(id int) error
}

// MorphHandler receives the morph list and the display order list. The
// first morph is the base morph.
type MorphHandler interface {
	LoopHandler
	Morph(r *MorphRecord) error
	MorphVertex(r *MorphVertexRecord) error
	MorphOrder(id int) error
}

type BoneGroupHandler interface {
	LoopHandler
	BoneGroupName(name string) error
	GroupedBone(r *GroupedBoneRecord) error
}

// EnglishHandler receives the English name section. When enabled is false
// nothing else of the section follows.
type EnglishHandler interface {
	LoopHandler
	English(enabled bool) error
	EnglishHeader(name, description string) error
	EnglishBoneName(name string) error
	EnglishMorphName(name string) error
	EnglishBoneGroupName(name string) error
}

type ToonHandler interface {
	LoopHandler
	ToonFile(file string) error
}

type RigidHandler interface {
	LoopHandler
	Rigid(r *RigidRecord) error
}

type JointHandler interface {
	LoopHandler
	Joint(r *JointRecord) error
}

// Handlers selects the receivers of each section. A nil handler makes the
// parser skip its section without decoding it.
type Handlers struct {
	Basic     BasicHandler
	Shape     ShapeHandler
	Material  MaterialHandler
	Bone      BoneHandler
	Morph     MorphHandler
	BoneGroup BoneGroupHandler
	English   EnglishHandler
	Toon      ToonHandler
	Rigid     RigidHandler
	Joint     JointHandler
}
