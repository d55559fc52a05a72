package converter

import (
	"path/filepath"
	"testing"

	"github.com/binzume/pmdconv/pmd"
	"github.com/qmuntal/gltf"
)

func triangleModel(t *testing.T) *pmd.Model {
	t.Helper()
	m := pmd.NewModel()
	m.Name.Primary = "tri"

	root := pmd.NewBone()
	root.Name.Primary = "root"
	root.Position = pmd.Vector3{Y: 10}
	child := pmd.NewBone()
	child.Name.Primary = "child"
	child.Prev = root
	child.Position = pmd.Vector3{Y: 20, Z: 5}
	m.Bones = []*pmd.Bone{root, child}
	m.DefaultBoneGroup().Bones = m.Bones

	for i := 0; i < 3; i++ {
		v := pmd.NewVertex()
		v.Position = pmd.Vector3{X: float32(i), Z: 1}
		v.SetBonePair(root, child)
		v.WeightA = 100 - i*50
		m.Vertices = append(m.Vertices, v)
	}
	s, err := pmd.NewSurface(m.Vertices[0], m.Vertices[1], m.Vertices[2])
	if err != nil {
		t.Fatal(err)
	}
	m.Surfaces = []*pmd.Surface{s}

	mat := pmd.NewMaterial()
	mat.Diffuse = pmd.Color{R: 1, G: 1, B: 1, A: 0.5}
	mat.Shade.Texture = "skin.png"
	mat.Surfaces = m.Surfaces
	unused := pmd.NewMaterial()
	m.Materials = []*pmd.Material{mat, unused}

	smile := pmd.NewMorphPart("smile", pmd.MorphLip)
	smile.Vertices = []*pmd.MorphVertex{{Vertex: m.Vertices[1], Offset: pmd.Vector3{Y: 1}}}
	m.Morphs = []*pmd.MorphPart{smile}
	m.Renumber()
	return m
}

func TestPMDToGLTF(t *testing.T) {
	m := triangleModel(t)
	doc, err := PMDToGLTF(m, &PMDToGLTFOption{Scale: 0.5, ExportMorphs: true, ExportSkin: true})
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Nodes) != 3 || len(doc.Meshes) != 1 || len(doc.Skins) != 1 {
		t.Fatal("nodes", len(doc.Nodes), len(doc.Meshes), len(doc.Skins))
	}
	if doc.Nodes[0].Translation != [3]float32{0, 5, 0} {
		t.Error("root translation", doc.Nodes[0].Translation)
	}
	if doc.Nodes[1].Translation != [3]float32{0, 5, -2.5} {
		t.Error("child translation is relative and mirrored on Z", doc.Nodes[1].Translation)
	}
	if len(doc.Nodes[0].Children) != 1 || doc.Nodes[0].Children[0] != 1 {
		t.Error("bone hierarchy", doc.Nodes[0].Children)
	}
	if len(doc.Scenes[0].Nodes) != 2 {
		t.Error("scene roots", doc.Scenes[0].Nodes)
	}
	if mesh := doc.Nodes[2]; mesh.Mesh == nil || mesh.Skin == nil || *mesh.Skin != 0 {
		t.Error("mesh node", mesh)
	}
	if len(doc.Skins[0].Joints) != 2 || doc.Skins[0].InverseBindMatrices == nil {
		t.Error("skin", doc.Skins[0])
	}

	mesh := doc.Meshes[0]
	if len(mesh.Primitives) != 1 {
		t.Fatal("material without surfaces must not make a primitive", len(mesh.Primitives))
	}
	p := mesh.Primitives[0]
	for _, attr := range []string{"POSITION", "NORMAL", "TEXCOORD_0", "JOINTS_0", "WEIGHTS_0"} {
		if _, ok := p.Attributes[attr]; !ok {
			t.Error("missing attribute", attr)
		}
	}
	if doc.Accessors[*p.Indices].Count != 3 || doc.Accessors[p.Attributes["POSITION"]].Count != 3 {
		t.Error("accessor counts")
	}
	if len(p.Targets) != 1 {
		t.Error("morph targets", p.Targets)
	}
	if names, ok := mesh.Extras.(map[string]interface{})["targetNames"].([]string); !ok || names[0] != "smile" {
		t.Error("target names", mesh.Extras)
	}

	mat := doc.Materials[0]
	if mat.AlphaMode != gltf.AlphaBlend || mat.PBRMetallicRoughness.BaseColorTexture == nil {
		t.Error("material", mat)
	}
	if len(doc.Images) != 1 || doc.Images[0].URI != "skin.png" || len(doc.Samplers) != 1 {
		t.Error("texture reference", doc.Images)
	}
}

func TestJointNodeToBone(t *testing.T) {
	m := triangleModel(t)
	c := NewPMDToGLTFConverter(nil)
	doc, err := c.Convert(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.JointNodeToBone) != len(m.Bones) {
		t.Fatal("joint nodes", len(c.JointNodeToBone))
	}
	for _, n := range doc.Skins[0].Joints {
		b := c.JointNodeToBone[n]
		if b == nil || doc.Nodes[n].Name != b.Name.String() {
			t.Error("joint", n, b)
		}
	}
	if c.JointNodeToBone[1] != m.Bones[1] {
		t.Error("child joint", c.JointNodeToBone[1])
	}
}

func TestPMDToGLTFNoSkin(t *testing.T) {
	m := triangleModel(t)
	doc, err := PMDToGLTF(m, &PMDToGLTFOption{})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Skins) != 0 || len(doc.Nodes) != 1 {
		t.Error("skin should be skipped", len(doc.Skins), len(doc.Nodes))
	}
	p := doc.Meshes[0].Primitives[0]
	if _, ok := p.Attributes["JOINTS_0"]; ok || len(p.Targets) != 0 {
		t.Error("no joints and no morphs", p.Attributes)
	}
}

func TestPMDToGLTFInvalidModel(t *testing.T) {
	m := triangleModel(t)
	m.Vertices[0].BoneA = pmd.NewBone()
	if _, err := PMDToGLTF(m, nil); err == nil {
		t.Error("vertex weighted to an unlisted bone")
	}
}

func TestSavePMDAsGLB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	if err := SavePMDAsGLB(triangleModel(t), path, nil); err != nil {
		t.Fatal(err)
	}
	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Meshes) != 1 || doc.Meshes[0].Name != "tri" {
		t.Error("saved document", doc.Meshes)
	}
}
