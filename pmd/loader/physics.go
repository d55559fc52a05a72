package loader

import (
	"go.uber.org/zap"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/parser"
)

type rigidBuilder struct {
	*state
	loops
}

func (b *rigidBuilder) LoopEnd(kind parser.Loop) error {
	b.log.Debug("rigid bodies loaded", zap.Int("count", len(b.m.RigidBodies)))
	return nil
}

func (b *rigidBuilder) Rigid(r *parser.RigidRecord) error {
	rb := pmd.NewRigidBody()
	rb.SetSerialNumber(len(b.m.RigidBodies))
	rb.Name.Primary = r.Name

	if r.Bone < pmd.MaxBone {
		bone, err := b.bone(r.Bone)
		if err != nil {
			return err
		}
		rb.Bone = bone
	}
	if r.Group >= len(b.m.RigidGroups) {
		return mmd.NewFormatError("rigid %q: group %d out of range", r.Name, r.Group)
	}
	rb.Group = b.m.RigidGroups[r.Group]
	rb.Group.Rigids = append(rb.Group.Rigids, rb)
	for i, g := range b.m.RigidGroups {
		if r.CollisionMask&(1<<uint(i)) == 0 {
			rb.NoCollision = append(rb.NoCollision, g)
		}
	}

	rb.Shape.Type = pmd.ShapeType(r.Shape)
	if !rb.Shape.Type.IsValid() {
		return mmd.NewFormatError("rigid %q: unknown shape %d", r.Name, r.Shape)
	}
	rb.Shape.Width, rb.Shape.Height, rb.Shape.Depth = r.Size[0], r.Size[1], r.Size[2]
	rb.Position = vec3(r.Position)
	rb.Rotation = vec3(r.Rotation)
	rb.Dynamics = pmd.Dynamics{
		Mass:            r.Mass,
		DampingPosition: r.DampPosition,
		DampingRotation: r.DampRotation,
		Restitution:     r.Restitution,
		Friction:        r.Friction,
	}
	rb.Behavior = pmd.RigidBehavior(r.Behavior)
	if !rb.Behavior.IsValid() {
		return mmd.NewFormatError("rigid %q: unknown behavior %d", r.Name, r.Behavior)
	}
	b.m.RigidBodies = append(b.m.RigidBodies, rb)
	return nil
}

type jointBuilder struct {
	*state
	loops
}

func (b *jointBuilder) LoopEnd(kind parser.Loop) error {
	b.log.Debug("joints loaded", zap.Int("count", len(b.m.Joints)))
	return nil
}

func (b *jointBuilder) rigid(id int) (*pmd.RigidBody, error) {
	if id < 0 || id >= len(b.m.RigidBodies) {
		return nil, mmd.NewFormatError("rigid id %d out of range", id)
	}
	return b.m.RigidBodies[id], nil
}

func (b *jointBuilder) Joint(r *parser.JointRecord) error {
	a, err := b.rigid(r.RigidA)
	if err != nil {
		return err
	}
	c, err := b.rigid(r.RigidB)
	if err != nil {
		return err
	}
	j := &pmd.Joint{
		Name:            pmd.Text{Primary: r.Name},
		RigidA:          a,
		RigidB:          c,
		Position:        vec3(r.Position),
		Rotation:        vec3(r.Rotation),
		ElasticPosition: vec3(r.ElasticPosition),
		ElasticRotation: vec3(r.ElasticRotation),
	}
	j.PositionRange.SetX(r.PositionFrom[0], r.PositionTo[0])
	j.PositionRange.SetY(r.PositionFrom[1], r.PositionTo[1])
	j.PositionRange.SetZ(r.PositionFrom[2], r.PositionTo[2])
	j.RotationRange.SetX(r.RotationFrom[0], r.RotationTo[0])
	j.RotationRange.SetY(r.RotationFrom[1], r.RotationTo[1])
	j.RotationRange.SetZ(r.RotationFrom[2], r.RotationTo[2])
	b.m.Joints = append(b.m.Joints, j)
	return nil
}
