package parser

// Record sizes in bytes.
const (
	HeaderSize        = 3 + 4 + 20 + 256
	VertexSize        = 38
	SurfaceSize       = 6
	MaterialSize      = 70
	BoneSize          = 39
	MorphVertexSize   = 16
	MorphOrderSize    = 2
	BoneGroupNameSize = 50
	GroupedBoneSize   = 3
	ToonFileSize      = 100
	RigidSize         = 83
	JointSize         = 124

	NameSize        = 20
	DescriptionSize = 256
	ShadingSize     = 20
	ToonCount       = 10

	ikHeaderSize    = 2 + 2 + 1 + 2 + 4
	morphHeaderSize = NameSize + 4 + 1
)

// Loop identifies the list a loop notification belongs to.
type Loop int

const (
	LoopVertex Loop = iota
	LoopSurface
	LoopMaterial
	LoopBone
	LoopIK
	LoopIKChain
	LoopMorph
	LoopMorphVertex
	LoopMorphOrder
	LoopBoneGroup
	LoopGroupedBone
	LoopEnglishBone
	LoopEnglishMorph
	LoopEnglishBoneGroup
	LoopToon
	LoopRigid
	LoopJoint
)

var loopNames = [...]string{
	"vertex", "surface", "material", "bone", "ik", "ik-chain", "morph",
	"morph-vertex", "morph-order", "bone-group", "grouped-bone",
	"english-bone", "english-morph", "english-bone-group", "toon", "rigid", "joint",
}

func (l Loop) String() string {
	if l < 0 || int(l) >= len(loopNames) {
		return "unknown"
	}
	return loopNames[l]
}

type Header struct {
	Magic       string
	Version     float32
	Name        string
	Description string
}

type VertexRecord struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
	BoneA    int
	BoneB    int
	Weight   int
	HideEdge bool
}

type SurfaceRecord struct {
	Vertices [3]int
}

type MaterialRecord struct {
	Diffuse   [4]float32
	Shininess float32
	Specular  [3]float32
	Ambient   [3]float32
	Toon      int
	Edge      bool
	// Surfaces is the number of triangles.
	Surfaces    int
	ShadingFile string
}

type BoneRecord struct {
	Name     string
	Prev     int
	Next     int
	Type     int
	IK       int
	Position [3]float32
}

type IKRecord struct {
	Bone        int
	Target      int
	ChainLength int
	Depth       int
	Weight      float32
}

type MorphRecord struct {
	Name     string
	Vertices int
	Type     int
}

// MorphVertexRecord is a base vertex id and position for the base morph,
// and a base morph index and offset for the others.
type MorphVertexRecord struct {
	ID     int
	Offset [3]float32
}

type GroupedBoneRecord struct {
	Bone  int
	Group int
}

type RigidRecord struct {
	Name          string
	Bone          int
	Group         int
	CollisionMask uint16
	Shape         int
	Size          [3]float32
	Position      [3]float32
	Rotation      [3]float32
	Mass          float32
	DampPosition  float32
	DampRotation  float32
	Restitution   float32
	Friction      float32
	Behavior      int
}

type JointRecord struct {
	Name            string
	RigidA          int
	RigidB          int
	Position        [3]float32
	Rotation        [3]float32
	PositionFrom    [3]float32
	PositionTo      [3]float32
	RotationFrom    [3]float32
	RotationTo      [3]float32
	ElasticPosition [3]float32
	ElasticRotation [3]float32
}
