package loader

import (
	"go.uber.org/zap"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
	"github.com/binzume/pmdconv/pmd/parser"
)

// boneBuilder builds the bone list and the IK chains.
type boneBuilder struct {
	*state
	loops
	next int
	ik   *pmd.IKChain
}

func (b *boneBuilder) LoopStart(kind parser.Loop, count int) error {
	if kind == parser.LoopBone {
		b.declaredBones = count
		if count > 0 {
			// links may point forward
			if _, err := b.growBones(count - 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *boneBuilder) LoopNext(kind parser.Loop) error {
	switch kind {
	case parser.LoopBone:
		b.next++
	case parser.LoopIK:
		b.m.IKChains = append(b.m.IKChains, b.ik)
		b.ik = nil
	}
	return nil
}

func (b *boneBuilder) LoopEnd(kind parser.Loop) error {
	switch kind {
	case parser.LoopBone:
		b.log.Debug("bones loaded", zap.Int("declared", b.declaredBones), zap.Int("count", len(b.m.Bones)))
	case parser.LoopIK:
		b.log.Debug("IK chains loaded", zap.Int("count", len(b.m.IKChains)))
	}
	return nil
}

func (b *boneBuilder) Bone(r *parser.BoneRecord) error {
	bone := b.m.Bones[b.next]
	bone.Name.Primary = r.Name
	bone.Type = pmd.BoneType(r.Type)
	if !bone.Type.IsValid() {
		return mmd.NewFormatError("bone %d: unknown bone type %d", b.next, r.Type)
	}
	bone.Position = vec3(r.Position)

	var err error
	// 0xffff is the only "no parent" value; 0 is a real parent.
	bone.Prev = nil
	if r.Prev < pmd.MaxBone {
		if bone.Prev, err = b.bone(r.Prev); err != nil {
			return err
		}
	}
	// 0 means no tail and no IK bone.
	bone.Next = nil
	if r.Next != 0 && r.Next < pmd.MaxBone {
		if bone.Next, err = b.bone(r.Next); err != nil {
			return err
		}
	}
	bone.IK = nil
	bone.RotationRatio = 0
	if bone.Type == pmd.BoneLinkedRot {
		bone.RotationRatio = r.IK
	} else if r.IK != 0 && r.IK < pmd.MaxBone {
		if bone.IK, err = b.bone(r.IK); err != nil {
			return err
		}
	}
	return nil
}

func (b *boneBuilder) IK(r *parser.IKRecord) error {
	ikBone, err := b.bone(r.Bone)
	if err != nil {
		return err
	}
	target, err := b.bone(r.Target)
	if err != nil {
		return err
	}
	b.ik = &pmd.IKChain{
		IKBone: ikBone,
		Depth:  r.Depth,
		Weight: r.Weight,
		Chain:  []*pmd.Bone{target},
	}
	return nil
}

func (b *boneBuilder) IKChainBone(id int) error {
	bone, err := b.bone(id)
	if err != nil {
		return err
	}
	b.ik.Chain = append(b.ik.Chain, bone)
	return nil
}

// groupBuilder builds the bone groups. Bones left out of every group are
// moved to the default group when the membership list ends.
type groupBuilder struct {
	*state
	loops
}

func (b *groupBuilder) BoneGroupName(name string) error {
	g := pmd.NewBoneGroup(name)
	g.SetSerialNumber(len(b.m.BoneGroups))
	b.m.BoneGroups = append(b.m.BoneGroups, g)
	return nil
}

func (b *groupBuilder) GroupedBone(r *parser.GroupedBoneRecord) error {
	bone, err := b.bone(r.Bone)
	if err != nil {
		return err
	}
	if r.Group < 0 || r.Group >= len(b.m.BoneGroups) {
		return mmd.NewFormatError("bone group id %d out of range", r.Group)
	}
	g := b.m.BoneGroups[r.Group]
	if !g.IsDefault() {
		g.Bones = append(g.Bones, bone)
	}
	return nil
}

func (b *groupBuilder) LoopEnd(kind parser.Loop) error {
	if kind == parser.LoopGroupedBone {
		def := b.m.DefaultBoneGroup()
		def.Bones = b.m.UngroupedBones()
		b.log.Debug("bone groups loaded",
			zap.Int("groups", len(b.m.BoneGroups)-1), zap.Int("ungrouped", len(def.Bones)))
	}
	return nil
}
