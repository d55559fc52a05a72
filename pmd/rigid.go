package pmd

import "fmt"

// RigidGroupCount is the fixed number of collision groups.
const RigidGroupCount = 16

type ShapeType int

const (
	ShapeSphere ShapeType = iota
	ShapeBox
	ShapeCapsule
)

func (t ShapeType) String() string {
	switch t {
	case ShapeSphere:
		return "SPHERE"
	case ShapeBox:
		return "BOX"
	case ShapeCapsule:
		return "CAPSULE"
	default:
		return fmt.Sprintf("ShapeType(%d)", int(t))
	}
}

func (t ShapeType) IsValid() bool {
	return t >= ShapeSphere && t <= ShapeCapsule
}

type RigidBehavior int

const (
	BehaviorFollowBone RigidBehavior = iota
	BehaviorOnlyDynamics
	BehaviorBonedDynamics
)

func (b RigidBehavior) String() string {
	switch b {
	case BehaviorFollowBone:
		return "FOLLOWBONE"
	case BehaviorOnlyDynamics:
		return "ONLYDYNAMICS"
	case BehaviorBonedDynamics:
		return "BONEDDYNAMICS"
	default:
		return fmt.Sprintf("RigidBehavior(%d)", int(b))
	}
}

func (b RigidBehavior) IsValid() bool {
	return b >= BehaviorFollowBone && b <= BehaviorBonedDynamics
}

// RigidShape is the collision shape. For spheres and capsules Width is the radius.
type RigidShape struct {
	Type   ShapeType
	Width  float32
	Height float32
	Depth  float32
}

func (s *RigidShape) Radius() float32 {
	return s.Width
}

func (s *RigidShape) SetRadius(r float32) {
	s.Width = r
}

// Dynamics holds the physical parameters of a rigid body.
type Dynamics struct {
	Mass            float32
	DampingPosition float32
	DampingRotation float32
	Restitution     float32
	Friction        float32
}

// RigidBody is a physics body, usually attached to a bone.
type RigidBody struct {
	Name     Text
	Behavior RigidBehavior
	Shape    RigidShape
	// Position is relative to Bone. Rotation is in radians.
	Position Vector3
	Rotation Vector3
	Dynamics Dynamics

	// Bone is nil when the body is not linked.
	Bone  *Bone
	Group *RigidGroup
	// NoCollision lists the groups this body passes through.
	NoCollision []*RigidGroup

	serial int
}

func NewRigidBody() *RigidBody {
	return &RigidBody{serial: -1}
}

func (r *RigidBody) SerialNumber() int     { return r.serial }
func (r *RigidBody) SetSerialNumber(n int) { r.serial = n }

// CollidesWith reports whether the body collides with members of g.
func (r *RigidBody) CollidesWith(g *RigidGroup) bool {
	for _, nc := range r.NoCollision {
		if nc == g {
			return false
		}
	}
	return true
}

// CollisionMask returns the 16 bit mask stored in the file. Bit n is
// cleared when the body passes through the group numbered n.
func (r *RigidBody) CollisionMask() uint16 {
	mask := uint16(0xffff)
	for _, g := range r.NoCollision {
		if g.serial >= 0 && g.serial < RigidGroupCount {
			mask &^= 1 << uint(g.serial)
		}
	}
	return mask
}

func (r *RigidBody) String() string {
	return fmt.Sprintf("Rigid(%d) %q %v %v bone=%s", r.serial, r.Name.Primary, r.Behavior, r.Shape.Type, boneRef(r.Bone))
}

// RigidGroup is one of the 16 collision groups.
type RigidGroup struct {
	Rigids []*RigidBody

	serial int
}

func NewRigidGroup() *RigidGroup {
	return &RigidGroup{serial: -1}
}

func (g *RigidGroup) SerialNumber() int     { return g.serial }
func (g *RigidGroup) SetSerialNumber(n int) { g.serial = n }

// GroupNumber is the one based number shown in editors.
func (g *RigidGroup) GroupNumber() int {
	return g.serial + 1
}

// Joint constrains two rigid bodies.
type Joint struct {
	Name   Text
	RigidA *RigidBody
	RigidB *RigidBody

	Position Vector3
	// Rotation is in radians.
	Rotation Vector3

	PositionRange Range3
	// RotationRange is in radians.
	RotationRange Range3

	ElasticPosition Vector3
	// ElasticRotation is in degrees.
	ElasticRotation Vector3
}

func (j *Joint) String() string {
	a, b := "NONE", "NONE"
	if j.RigidA != nil {
		a = fmt.Sprintf("%q", j.RigidA.Name.Primary)
	}
	if j.RigidB != nil {
		b = fmt.Sprintf("%q", j.RigidB.Name.Primary)
	}
	return fmt.Sprintf("Joint %q %s-%s", j.Name.Primary, a, b)
}
