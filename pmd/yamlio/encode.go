package yamlio

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/binzume/pmdconv/pmd"
)

func vec2(v pmd.Vector2) []float32 { return []float32{v.X, v.Y} }
func vec3(v pmd.Vector3) []float32 { return []float32{v.X, v.Y, v.Z} }
func rgb(c pmd.Color) []float32    { return []float32{c.R, c.G, c.B} }

func boneRef(b *pmd.Bone) *int {
	if b == nil {
		return nil
	}
	i := b.SerialNumber()
	return &i
}

func bones(list []*pmd.Bone) []int {
	r := make([]int, len(list))
	for i, b := range list {
		r[i] = b.SerialNumber()
	}
	return r
}

func range3(r pmd.Range3) Range3 {
	return Range3{
		X: []float32{r.X.From(), r.X.To()},
		Y: []float32{r.Y.From(), r.Y.To()},
		Z: []float32{r.Z.From(), r.Z.To()},
	}
}

// Encode converts m into a document. The model is validated first, which
// also reassigns serial numbers.
func Encode(m *pmd.Model) (*Document, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	doc := &Document{
		Version:       m.Version,
		Name:          m.Name.Primary,
		NameEn:        m.Name.Global,
		Description:   m.Description.Primary,
		DescriptionEn: m.Description.Global,
	}

	toon := m.Toon
	if toon == nil {
		toon = pmd.NewToonMap()
	}
	for i := 0; i < pmd.ToonCount; i++ {
		doc.Toon = append(doc.Toon, toon.Get(i))
	}

	for _, v := range m.Vertices {
		doc.Vertices = append(doc.Vertices, Vertex{
			Position: vec3(v.Position),
			Normal:   vec3(v.Normal),
			UV:       vec2(v.UV),
			Bones:    []int{v.BoneA.SerialNumber(), v.BoneB.SerialNumber()},
			Weight:   v.WeightA,
			ShowEdge: v.ShowEdge,
		})
	}

	for _, mat := range m.Materials {
		d := mat.Diffuse
		dm := Material{
			Diffuse:   []float32{d.R, d.G, d.B, d.A},
			Specular:  rgb(mat.Specular()),
			Ambient:   rgb(mat.Ambient()),
			Shininess: mat.Shininess,
			ShowEdge:  mat.ShowEdge,
			Toon:      mat.Shade.ToonIndex,
			Texture:   mat.Shade.Texture,
			SphereMap: mat.Shade.SphereMap,
			Indices:   []int{},
		}
		for _, s := range mat.Surfaces {
			for _, v := range s.Triangle() {
				dm.Indices = append(dm.Indices, v.SerialNumber())
			}
		}
		doc.Materials = append(doc.Materials, dm)
	}

	for _, b := range m.Bones {
		db := Bone{
			Name:     b.Name.Primary,
			NameEn:   b.Name.Global,
			Type:     b.Type.String(),
			Position: vec3(b.Position),
			Prev:     boneRef(b.Prev),
			Next:     boneRef(b.Next),
		}
		if b.Type == pmd.BoneLinkedRot {
			db.RotationRatio = b.RotationRatio
		} else {
			db.IK = boneRef(b.IK)
		}
		doc.Bones = append(doc.Bones, db)
	}

	for _, g := range m.BoneGroups[1:] {
		doc.BoneGroups = append(doc.BoneGroups, BoneGroup{
			Name:   g.Name.Primary,
			NameEn: g.Name.Global,
			Bones:  bones(g.Bones),
		})
	}

	for _, ik := range m.IKChains {
		doc.IKChains = append(doc.IKChains, IKChain{
			IKBone: ik.IKBone.SerialNumber(),
			Depth:  ik.Depth,
			Weight: ik.Weight,
			Chain:  bones(ik.Chain),
		})
	}

	for _, p := range m.Morphs {
		dp := Morph{Name: p.Name.Primary, NameEn: p.Name.Global, Type: p.Type.String()}
		for _, mv := range p.Vertices {
			dp.Vertices = append(dp.Vertices, MorphVertex{Vertex: mv.Vertex.SerialNumber(), Offset: vec3(mv.Offset)})
		}
		doc.Morphs = append(doc.Morphs, dp)
	}

	for _, r := range m.RigidBodies {
		dr := RigidBody{
			Name:     r.Name.Primary,
			NameEn:   r.Name.Global,
			Behavior: r.Behavior.String(),
			Bone:     boneRef(r.Bone),
			Shape:    r.Shape.Type.String(),
			Size:     []float32{r.Shape.Width, r.Shape.Height, r.Shape.Depth},
			Position: vec3(r.Position),
			Rotation: vec3(r.Rotation),
			Dynamics: Dynamics(r.Dynamics),
			Group:    r.Group.SerialNumber(),
		}
		for _, g := range r.NoCollision {
			dr.NoCollision = append(dr.NoCollision, g.SerialNumber())
		}
		doc.RigidBodies = append(doc.RigidBodies, dr)
	}

	for _, j := range m.Joints {
		doc.Joints = append(doc.Joints, Joint{
			Name:            j.Name.Primary,
			NameEn:          j.Name.Global,
			Rigids:          []int{j.RigidA.SerialNumber(), j.RigidB.SerialNumber()},
			Position:        vec3(j.Position),
			Rotation:        vec3(j.Rotation),
			PositionRange:   range3(j.PositionRange),
			RotationRange:   range3(j.RotationRange),
			ElasticPosition: vec3(j.ElasticPosition),
			ElasticRotation: vec3(j.ElasticRotation),
		})
	}
	return doc, nil
}

// Write encodes m to w. Nothing is written when the model is not exportable.
func Write(m *pmd.Model, w io.Writer) error {
	doc, err := Encode(m)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes m to path.
func Save(m *pmd.Model, path string) error {
	var buf bytes.Buffer
	if err := Write(m, &buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
