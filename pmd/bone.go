package pmd

import "fmt"

type BoneType int

const (
	BoneRotate BoneType = iota
	BoneRotMov
	BoneIK
	BoneUnknown
	BoneUnderIK
	BoneUnderRot
	BoneIKConnected
	BoneHidden
	BoneTwist
	BoneLinkedRot
)

var boneTypeNames = [...]string{
	"ROTATE", "ROTMOV", "IK", "UNKNOWN", "UNDERIK",
	"UNDERROT", "IKCONNECTED", "HIDDEN", "TWIST", "LINKEDROT",
}

func (t BoneType) String() string {
	if t < 0 || int(t) >= len(boneTypeNames) {
		return fmt.Sprintf("BoneType(%d)", int(t))
	}
	return boneTypeNames[t]
}

// IsValid reports whether t is one of the known bone types.
func (t BoneType) IsValid() bool {
	return t >= BoneRotate && t <= BoneLinkedRot
}

// IsVisible reports whether the bone is shown in an editor.
func (t BoneType) IsVisible() bool {
	return t != BoneHidden && t != BoneUnderIK && t != BoneIKConnected && t != BoneUnderRot
}

// IsMovable reports whether the bone accepts translation.
func (t BoneType) IsMovable() bool {
	return t == BoneRotMov || t == BoneIK
}

// Bone is a skeleton joint.
type Bone struct {
	Name     Text
	Type     BoneType
	Position Vector3

	// Prev is the parent bone, Next the tail bone used for display.
	Prev *Bone
	Next *Bone
	// IK is the IK bone affecting this bone. It is unused for BoneLinkedRot.
	IK *Bone
	// RotationRatio is the linked rotation percentage of a BoneLinkedRot bone.
	RotationRatio int

	serial int
}

func NewBone() *Bone {
	return &Bone{serial: -1}
}

func (b *Bone) SerialNumber() int     { return b.serial }
func (b *Bone) SetSerialNumber(n int) { b.serial = n }

func (b *Bone) String() string {
	return fmt.Sprintf("Bone(%d) %q %v pos=%v prev=%s next=%s ik=%s",
		b.serial, b.Name.Primary, b.Type, b.Position, boneRef(b.Prev), boneRef(b.Next), boneRef(b.IK))
}

func boneRef(b *Bone) string {
	if b == nil {
		return "NONE"
	}
	return fmt.Sprintf("%q", b.Name.Primary)
}

// BoneGroup is a named set of bones shown together in an editor.
// The group numbered 0 is the implicit default group and has no stored name.
type BoneGroup struct {
	Name  Text
	Bones []*Bone

	serial int
}

func NewBoneGroup(name string) *BoneGroup {
	return &BoneGroup{Name: Text{Primary: name}, serial: -1}
}

func (g *BoneGroup) SerialNumber() int     { return g.serial }
func (g *BoneGroup) SetSerialNumber(n int) { g.serial = n }

// IsDefault reports whether g is the implicit default group.
func (g *BoneGroup) IsDefault() bool {
	return g.serial == 0
}

// Contains reports whether b is a member of g.
func (g *BoneGroup) Contains(b *Bone) bool {
	for _, m := range g.Bones {
		if m == b {
			return true
		}
	}
	return false
}

// IKChain solves the bones in Chain so that Chain[0] reaches IKBone.
type IKChain struct {
	IKBone *Bone
	Depth  int
	Weight float32
	// Chain starts with the target bone followed by the affected bones.
	Chain []*Bone
}

// Target returns the bone that follows IKBone, or nil for an empty chain.
func (c *IKChain) Target() *Bone {
	if len(c.Chain) == 0 {
		return nil
	}
	return c.Chain[0]
}

// Affected returns the bones rotated by the solver.
func (c *IKChain) Affected() []*Bone {
	if len(c.Chain) == 0 {
		return nil
	}
	return c.Chain[1:]
}
