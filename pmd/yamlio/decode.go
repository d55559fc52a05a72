package yamlio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/binzume/pmdconv/mmd"
	"github.com/binzume/pmdconv/pmd"
)

// decoder builds a model from a document. The first error sticks and later
// calls return zero values.
type decoder struct {
	doc *Document
	m   *pmd.Model
	err error
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = mmd.NewFormatError(format, args...)
	}
}

func (d *decoder) floats(what string, s []float32, n int) []float32 {
	if len(s) != n {
		d.fail("%s: want %d numbers, got %d", what, n, len(s))
		return make([]float32, n)
	}
	return s
}

func (d *decoder) vec2(what string, s []float32) pmd.Vector2 {
	f := d.floats(what, s, 2)
	return pmd.Vector2{X: f[0], Y: f[1]}
}

func (d *decoder) vec3(what string, s []float32) pmd.Vector3 {
	f := d.floats(what, s, 3)
	return pmd.Vector3{X: f[0], Y: f[1], Z: f[2]}
}

func (d *decoder) rgb(what string, s []float32) pmd.Color {
	f := d.floats(what, s, 3)
	return pmd.Color{R: f[0], G: f[1], B: f[2], A: 1}
}

func (d *decoder) range3(what string, r Range3) pmd.Range3 {
	var v pmd.Range3
	x := d.floats(what+" x", r.X, 2)
	y := d.floats(what+" y", r.Y, 2)
	z := d.floats(what+" z", r.Z, 2)
	v.SetX(x[0], x[1])
	v.SetY(y[0], y[1])
	v.SetZ(z[0], z[1])
	return v
}

func (d *decoder) bone(what string, id int) *pmd.Bone {
	if id < 0 || id >= len(d.m.Bones) {
		d.fail("%s: bone %d out of range", what, id)
		return nil
	}
	return d.m.Bones[id]
}

func (d *decoder) boneRef(what string, id *int) *pmd.Bone {
	if id == nil {
		return nil
	}
	return d.bone(what, *id)
}

func (d *decoder) bones(what string, ids []int) []*pmd.Bone {
	r := make([]*pmd.Bone, 0, len(ids))
	for _, id := range ids {
		if b := d.bone(what, id); b != nil {
			r = append(r, b)
		}
	}
	return r
}

func (d *decoder) vertex(what string, id int) *pmd.Vertex {
	if id < 0 || id >= len(d.m.Vertices) {
		d.fail("%s: vertex %d out of range", what, id)
		return nil
	}
	return d.m.Vertices[id]
}

func (d *decoder) rigidGroup(what string, id int) *pmd.RigidGroup {
	if id < 0 || id >= len(d.m.RigidGroups) {
		d.fail("%s: rigid group %d out of range", what, id)
		return nil
	}
	return d.m.RigidGroups[id]
}

func (d *decoder) rigid(what string, id int) *pmd.RigidBody {
	if id < 0 || id >= len(d.m.RigidBodies) {
		d.fail("%s: rigid body %d out of range", what, id)
		return nil
	}
	return d.m.RigidBodies[id]
}

func parseBoneType(s string) (pmd.BoneType, bool) {
	for t := pmd.BoneRotate; t <= pmd.BoneLinkedRot; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

func parseMorphType(s string) (pmd.MorphType, bool) {
	for _, t := range pmd.MorphTypes {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

func parseShapeType(s string) (pmd.ShapeType, bool) {
	for t := pmd.ShapeSphere; t.IsValid(); t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

func parseBehavior(s string) (pmd.RigidBehavior, bool) {
	for b := pmd.BehaviorFollowBone; b.IsValid(); b++ {
		if b.String() == s {
			return b, true
		}
	}
	return 0, false
}

func (d *decoder) header() {
	if d.doc.Version != 0 {
		d.m.Version = d.doc.Version
	}
	d.m.Name = pmd.Text{Primary: d.doc.Name, Global: d.doc.NameEn}
	d.m.Description = pmd.Text{Primary: d.doc.Description, Global: d.doc.DescriptionEn}
	if len(d.doc.Toon) > pmd.ToonCount {
		d.fail("toon: %d entries", len(d.doc.Toon))
		return
	}
	for i, f := range d.doc.Toon {
		d.m.Toon.Set(i, f)
	}
}

// bonesAndVertices decodes bones first so skinning references resolve.
func (d *decoder) bonesAndVertices() {
	for range d.doc.Bones {
		d.m.Bones = append(d.m.Bones, pmd.NewBone())
	}
	for i, db := range d.doc.Bones {
		what := fmt.Sprintf("bone %d", i)
		b := d.m.Bones[i]
		b.Name = pmd.Text{Primary: db.Name, Global: db.NameEn}
		t, ok := parseBoneType(db.Type)
		if !ok {
			d.fail("%s: unknown type %q", what, db.Type)
		}
		b.Type = t
		b.Position = d.vec3(what, db.Position)
		b.Prev = d.boneRef(what, db.Prev)
		b.Next = d.boneRef(what, db.Next)
		if t == pmd.BoneLinkedRot {
			b.RotationRatio = db.RotationRatio
		} else {
			b.IK = d.boneRef(what, db.IK)
		}
	}

	for i, dv := range d.doc.Vertices {
		what := fmt.Sprintf("vertex %d", i)
		v := pmd.NewVertex()
		v.Position = d.vec3(what, dv.Position)
		v.Normal = d.vec3(what, dv.Normal)
		v.UV = d.vec2(what, dv.UV)
		if len(dv.Bones) != 2 {
			d.fail("%s: want 2 bones, got %d", what, len(dv.Bones))
		} else {
			v.SetBonePair(d.bone(what, dv.Bones[0]), d.bone(what, dv.Bones[1]))
		}
		if err := v.SetWeightA(dv.Weight); err != nil {
			d.fail("%s: %v", what, err)
		}
		v.ShowEdge = dv.ShowEdge
		d.m.Vertices = append(d.m.Vertices, v)
	}
}

// materials rebuilds the surface list in material order.
func (d *decoder) materials() {
	for i, dm := range d.doc.Materials {
		what := fmt.Sprintf("material %d", i)
		mat := pmd.NewMaterial()
		diffuse := d.floats(what+" diffuse", dm.Diffuse, 4)
		mat.Diffuse = pmd.Color{R: diffuse[0], G: diffuse[1], B: diffuse[2], A: diffuse[3]}
		mat.SetSpecular(d.rgb(what+" specular", dm.Specular))
		mat.SetAmbient(d.rgb(what+" ambient", dm.Ambient))
		mat.Shininess = dm.Shininess
		mat.ShowEdge = dm.ShowEdge
		if (dm.Toon < 0 || dm.Toon >= pmd.ToonCount) && dm.Toon != pmd.ToonIndexDefault {
			d.fail("%s: toon index %d out of range", what, dm.Toon)
		}
		mat.Shade = pmd.ShadeInfo{ToonIndex: dm.Toon, Texture: dm.Texture, SphereMap: dm.SphereMap}

		if len(dm.Indices)%3 != 0 {
			d.fail("%s: index count %d is not a multiple of 3", what, len(dm.Indices))
		}
		for j := 0; j+2 < len(dm.Indices) && d.err == nil; j += 3 {
			v1 := d.vertex(what, dm.Indices[j])
			v2 := d.vertex(what, dm.Indices[j+1])
			v3 := d.vertex(what, dm.Indices[j+2])
			if d.err != nil {
				break
			}
			s, err := pmd.NewSurface(v1, v2, v3)
			if err != nil {
				d.fail("%s: triangle %d: %v", what, j/3, err)
				break
			}
			mat.Surfaces = append(mat.Surfaces, s)
			d.m.Surfaces = append(d.m.Surfaces, s)
		}
		d.m.Materials = append(d.m.Materials, mat)
	}
}

func (d *decoder) boneGroupsAndIK() {
	for i, dg := range d.doc.BoneGroups {
		g := pmd.NewBoneGroup(dg.Name)
		g.Name.Global = dg.NameEn
		g.Bones = d.bones(fmt.Sprintf("bone group %d", i+1), dg.Bones)
		d.m.BoneGroups = append(d.m.BoneGroups, g)
	}
	for i, dk := range d.doc.IKChains {
		what := fmt.Sprintf("IK chain %d", i)
		if len(dk.Chain) == 0 {
			d.fail("%s: no target bone", what)
			continue
		}
		d.m.IKChains = append(d.m.IKChains, &pmd.IKChain{
			IKBone: d.bone(what, dk.IKBone),
			Depth:  dk.Depth,
			Weight: dk.Weight,
			Chain:  d.bones(what, dk.Chain),
		})
	}
}

func (d *decoder) morphs() {
	for i, dp := range d.doc.Morphs {
		what := fmt.Sprintf("morph %d", i)
		t, ok := parseMorphType(dp.Type)
		if !ok {
			d.fail("%s: unknown type %q", what, dp.Type)
		}
		p := pmd.NewMorphPart(dp.Name, t)
		p.Name.Global = dp.NameEn
		for _, dv := range dp.Vertices {
			p.Vertices = append(p.Vertices, &pmd.MorphVertex{
				Vertex: d.vertex(what, dv.Vertex),
				Offset: d.vec3(what, dv.Offset),
			})
		}
		d.m.Morphs = append(d.m.Morphs, p)
	}
}

func (d *decoder) physics() {
	for i, dr := range d.doc.RigidBodies {
		what := fmt.Sprintf("rigid body %d", i)
		r := pmd.NewRigidBody()
		r.Name = pmd.Text{Primary: dr.Name, Global: dr.NameEn}
		var ok bool
		if r.Behavior, ok = parseBehavior(dr.Behavior); !ok {
			d.fail("%s: unknown behavior %q", what, dr.Behavior)
		}
		if r.Shape.Type, ok = parseShapeType(dr.Shape); !ok {
			d.fail("%s: unknown shape %q", what, dr.Shape)
		}
		size := d.floats(what+" size", dr.Size, 3)
		r.Shape.Width, r.Shape.Height, r.Shape.Depth = size[0], size[1], size[2]
		r.Bone = d.boneRef(what, dr.Bone)
		r.Position = d.vec3(what, dr.Position)
		r.Rotation = d.vec3(what, dr.Rotation)
		r.Dynamics = pmd.Dynamics(dr.Dynamics)
		if g := d.rigidGroup(what, dr.Group); g != nil {
			r.Group = g
			g.Rigids = append(g.Rigids, r)
		}
		for _, id := range dr.NoCollision {
			if g := d.rigidGroup(what, id); g != nil {
				r.NoCollision = append(r.NoCollision, g)
			}
		}
		d.m.RigidBodies = append(d.m.RigidBodies, r)
	}

	for i, dj := range d.doc.Joints {
		what := fmt.Sprintf("joint %d", i)
		j := &pmd.Joint{Name: pmd.Text{Primary: dj.Name, Global: dj.NameEn}}
		if len(dj.Rigids) != 2 {
			d.fail("%s: want 2 rigid bodies, got %d", what, len(dj.Rigids))
		} else {
			j.RigidA = d.rigid(what, dj.Rigids[0])
			j.RigidB = d.rigid(what, dj.Rigids[1])
		}
		j.Position = d.vec3(what, dj.Position)
		j.Rotation = d.vec3(what, dj.Rotation)
		j.PositionRange = d.range3(what+" position range", dj.PositionRange)
		j.RotationRange = d.range3(what+" rotation range", dj.RotationRange)
		j.ElasticPosition = d.vec3(what, dj.ElasticPosition)
		j.ElasticRotation = d.vec3(what, dj.ElasticRotation)
		d.m.Joints = append(d.m.Joints, j)
	}
}

// Model builds the model described by doc. Broken references and unknown
// names return a *mmd.FormatError.
func (doc *Document) Model() (*pmd.Model, error) {
	d := &decoder{doc: doc, m: pmd.NewModel()}
	d.header()
	d.bonesAndVertices()
	d.materials()
	d.boneGroupsAndIK()
	d.morphs()
	d.physics()
	if d.err != nil {
		return nil, d.err
	}
	d.m.Renumber()
	d.m.DefaultBoneGroup().Bones = d.m.UngroupedBones()
	return d.m, nil
}

// Read decodes one document from r. Unknown keys are rejected.
func Read(r io.Reader) (*pmd.Model, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, mmd.NewFormatError("yaml: %v", err)
	}
	return doc.Model()
}

// Load reads the document at path.
func Load(path string) (*pmd.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}
