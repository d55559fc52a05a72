// Package yamlio reads and writes a whole model as a YAML document.
//
// Entities refer to each other by their index in the owning list. Bone
// references that may be empty are omitted instead of using sentinel ids.
package yamlio

type Document struct {
	Version       float32 `yaml:"version"`
	Name          string  `yaml:"name"`
	NameEn        string  `yaml:"name_en,omitempty"`
	Description   string  `yaml:"description"`
	DescriptionEn string  `yaml:"description_en,omitempty"`

	// Toon holds the custom toon file names by slot.
	Toon []string `yaml:"toon"`

	Vertices    []Vertex    `yaml:"vertices"`
	Materials   []Material  `yaml:"materials"`
	Bones       []Bone      `yaml:"bones"`
	BoneGroups  []BoneGroup `yaml:"bone_groups,omitempty"`
	IKChains    []IKChain   `yaml:"ik_chains,omitempty"`
	Morphs      []Morph     `yaml:"morphs,omitempty"`
	RigidBodies []RigidBody `yaml:"rigid_bodies,omitempty"`
	Joints      []Joint     `yaml:"joints,omitempty"`
}

type Vertex struct {
	Position []float32 `yaml:"position,flow"`
	Normal   []float32 `yaml:"normal,flow"`
	UV       []float32 `yaml:"uv,flow"`
	// Bones holds the two skinning bones. Weight is the share of the first.
	Bones    []int `yaml:"bones,flow"`
	Weight   int   `yaml:"weight"`
	ShowEdge bool  `yaml:"show_edge"`
}

type Material struct {
	Diffuse   []float32 `yaml:"diffuse,flow"`
	Specular  []float32 `yaml:"specular,flow"`
	Ambient   []float32 `yaml:"ambient,flow"`
	Shininess float32   `yaml:"shininess"`
	ShowEdge  bool      `yaml:"show_edge"`
	Toon      int       `yaml:"toon"`
	Texture   string    `yaml:"texture,omitempty"`
	SphereMap string    `yaml:"sphere_map,omitempty"`
	// Indices lists the vertex indices of the material's triangles.
	Indices []int `yaml:"indices,flow"`
}

type Bone struct {
	Name          string    `yaml:"name"`
	NameEn        string    `yaml:"name_en,omitempty"`
	Type          string    `yaml:"type"`
	Position      []float32 `yaml:"position,flow"`
	Prev          *int      `yaml:"prev,omitempty"`
	Next          *int      `yaml:"next,omitempty"`
	IK            *int      `yaml:"ik,omitempty"`
	RotationRatio int       `yaml:"rotation_ratio,omitempty"`
}

type BoneGroup struct {
	Name   string `yaml:"name"`
	NameEn string `yaml:"name_en,omitempty"`
	Bones  []int  `yaml:"bones,flow"`
}

type IKChain struct {
	IKBone int     `yaml:"ik_bone"`
	Depth  int     `yaml:"depth"`
	Weight float32 `yaml:"weight"`
	// Chain starts with the target bone.
	Chain []int `yaml:"chain,flow"`
}

type Morph struct {
	Name     string        `yaml:"name"`
	NameEn   string        `yaml:"name_en,omitempty"`
	Type     string        `yaml:"type"`
	Vertices []MorphVertex `yaml:"vertices"`
}

type MorphVertex struct {
	Vertex int       `yaml:"vertex"`
	Offset []float32 `yaml:"offset,flow"`
}

type RigidBody struct {
	Name     string    `yaml:"name"`
	NameEn   string    `yaml:"name_en,omitempty"`
	Behavior string    `yaml:"behavior"`
	Bone     *int      `yaml:"bone,omitempty"`
	Shape    string    `yaml:"shape"`
	Size     []float32 `yaml:"size,flow"`
	Position []float32 `yaml:"position,flow"`
	Rotation []float32 `yaml:"rotation,flow"`
	Dynamics Dynamics  `yaml:"dynamics"`
	// Group is the collision group, 0 to 15.
	Group       int   `yaml:"group"`
	NoCollision []int `yaml:"no_collision,flow,omitempty"`
}

type Dynamics struct {
	Mass            float32 `yaml:"mass"`
	DampingPosition float32 `yaml:"damping_position"`
	DampingRotation float32 `yaml:"damping_rotation"`
	Restitution     float32 `yaml:"restitution"`
	Friction        float32 `yaml:"friction"`
}

type Joint struct {
	Name            string    `yaml:"name"`
	NameEn          string    `yaml:"name_en,omitempty"`
	Rigids          []int     `yaml:"rigids,flow"`
	Position        []float32 `yaml:"position,flow"`
	Rotation        []float32 `yaml:"rotation,flow"`
	PositionRange   Range3    `yaml:"position_range"`
	RotationRange   Range3    `yaml:"rotation_range"`
	ElasticPosition []float32 `yaml:"elastic_position,flow"`
	ElasticRotation []float32 `yaml:"elastic_rotation,flow"`
}

// Range3 holds a from/to pair per axis.
type Range3 struct {
	X []float32 `yaml:"x,flow"`
	Y []float32 `yaml:"y,flow"`
	Z []float32 `yaml:"z,flow"`
}
