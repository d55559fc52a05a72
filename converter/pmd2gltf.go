package converter

import (
	"math"
	"strconv"

	"github.com/binzume/pmdconv/pmd"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

type PMDToGLTFOption struct {
	Scale        float32 // Default: 0.08
	ExportMorphs bool
	ExportSkin   bool
}

// DefaultPMDToGLTFOption converts MMD units to meters and keeps bones and morphs.
func DefaultPMDToGLTFOption() *PMDToGLTFOption {
	return &PMDToGLTFOption{Scale: 0.08, ExportMorphs: true, ExportSkin: true}
}

type pmdToGltf struct {
	*PMDToGLTFOption
	*gltf.Document
	// JointNodeToBone maps a node index to the bone it was made from.
	JointNodeToBone map[uint32]*pmd.Bone
}

func NewPMDToGLTFConverter(options *PMDToGLTFOption) *pmdToGltf {
	if options == nil {
		options = DefaultPMDToGLTFOption()
	}
	if options.Scale == 0 {
		options.Scale = 0.08
	}
	return &pmdToGltf{
		PMDToGLTFOption: options,
		Document:        gltf.NewDocument(),
		JointNodeToBone: map[uint32]*pmd.Bone{},
	}
}

// PMD is left handed.
func (c *pmdToGltf) pos(v pmd.Vector3) [3]float32 {
	return [3]float32{v.X * c.Scale, v.Y * c.Scale, -v.Z * c.Scale}
}

func (c *pmdToGltf) addMatrices(mat [][4][4]float32) uint32 {
	a := make([][4]float32, len(mat)*4)
	for i, m := range mat {
		a[i*4+0] = m[0]
		a[i*4+1] = m[1]
		a[i*4+2] = m[2]
		a[i*4+3] = m[3]
	}
	acc := modeler.WriteTangent(c.Document, a)
	c.Accessors[acc].Type = gltf.AccessorMat4
	c.Accessors[acc].Count /= 4
	c.BufferViews[*c.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

// addBoneNodes adds one node per bone. Bones without a parent hang from the
// scene root. Returns node indices in bone order.
func (c *pmdToGltf) addBoneNodes(m *pmd.Model) []uint32 {
	first := uint32(len(c.Nodes))
	nodes := make([]uint32, len(m.Bones))
	for i, b := range m.Bones {
		nodes[i] = first + uint32(i)
		c.JointNodeToBone[nodes[i]] = b
		c.Nodes = append(c.Nodes, &gltf.Node{Name: b.Name.String(), Rotation: [4]float32{0, 0, 0, 1}})
	}
	for i, b := range m.Bones {
		node := c.Nodes[nodes[i]]
		if b.Prev == nil {
			node.Translation = c.pos(b.Position)
			c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, nodes[i])
			continue
		}
		pp := c.pos(b.Prev.Position)
		p := c.pos(b.Position)
		node.Translation = [3]float32{p[0] - pp[0], p[1] - pp[1], p[2] - pp[2]}
		parent := c.Nodes[nodes[b.Prev.SerialNumber()]]
		parent.Children = append(parent.Children, nodes[i])
	}
	return nodes
}

func (c *pmdToGltf) addSkin(m *pmd.Model, joints []uint32) uint32 {
	invmats := make([][4][4]float32, len(m.Bones))
	for i, b := range m.Bones {
		p := c.pos(b.Position)
		invmats[i] = [4][4]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{-p[0], -p[1], -p[2], 1},
		}
	}
	c.Skins = append(c.Skins, &gltf.Skin{
		Joints:              joints,
		InverseBindMatrices: gltf.Index(c.addMatrices(invmats)),
	})
	return uint32(len(c.Skins) - 1)
}

func (c *pmdToGltf) convertMaterial(i int, mat *pmd.Material) *gltf.Material {
	var rf float32 = 1 - float32(math.Min(float64(mat.Shininess)/100, 1))
	var mf float32 = 0
	mm := &gltf.Material{
		Name: "material" + strconv.Itoa(i),
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{mat.Diffuse.R, mat.Diffuse.G, mat.Diffuse.B, mat.Diffuse.A},
			RoughnessFactor: &rf,
			MetallicFactor:  &mf,
		},
		DoubleSided: mat.Diffuse.A < 1,
	}
	if mat.Diffuse.A < 0.99 {
		mm.AlphaMode = gltf.AlphaBlend
	}
	if mat.Shade.Texture != "" {
		mm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: c.addTexture(mat.Shade.Texture)}
	}
	return mm
}

// addTexture references the image by file name. Images are not embedded.
func (c *pmdToGltf) addTexture(name string) uint32 {
	for i, t := range c.Textures {
		if t.Source != nil && c.Images[*t.Source].URI == name {
			return uint32(i)
		}
	}
	c.Images = append(c.Images, &gltf.Image{Name: name, URI: name})
	c.Textures = append(c.Textures, &gltf.Texture{
		Sampler: gltf.Index(0),
		Source:  gltf.Index(uint32(len(c.Images) - 1)),
	})
	return uint32(len(c.Textures) - 1)
}

func (c *pmdToGltf) morphTargets(m *pmd.Model, normals uint32) ([]map[string]uint32, []string) {
	var targets []map[string]uint32
	var names []string
	for _, p := range m.MorphsInFileOrder() {
		offsets := make([][3]float32, len(m.Vertices))
		for _, mv := range p.Vertices {
			if mv.Vertex == nil {
				continue
			}
			offsets[mv.Vertex.SerialNumber()] = [3]float32{
				mv.Offset.X * c.Scale, mv.Offset.Y * c.Scale, -mv.Offset.Z * c.Scale,
			}
		}
		targets = append(targets, map[string]uint32{
			"POSITION": modeler.WritePosition(c.Document, offsets),
			"NORMAL":   normals,
		})
		names = append(names, p.Name.String())
	}
	return targets, names
}

// Convert builds a glTF document holding one skinned mesh with a primitive per material.
func (c *pmdToGltf) Convert(m *pmd.Model) (*gltf.Document, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	positions := make([][3]float32, len(m.Vertices))
	normals := make([][3]float32, len(m.Vertices))
	uvs := make([][2]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = c.pos(v.Position)
		normals[i] = [3]float32{v.Normal.X, v.Normal.Y, -v.Normal.Z}
		uvs[i] = [2]float32{v.UV.X, v.UV.Y}
	}
	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(c.Document, positions),
		"NORMAL":     modeler.WriteNormal(c.Document, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(c.Document, uvs),
	}

	skinned := c.ExportSkin && len(m.Bones) > 0
	var joints []uint32
	if skinned {
		joints = c.addBoneNodes(m)
		joints0 := make([][4]uint16, len(m.Vertices))
		weights0 := make([][4]float32, len(m.Vertices))
		for i, v := range m.Vertices {
			joints0[i] = [4]uint16{uint16(v.BoneA.SerialNumber()), uint16(v.BoneB.SerialNumber())}
			weights0[i] = [4]float32{v.WeightRatioA(), v.WeightRatioB()}
			if v.BoneA == v.BoneB {
				weights0[i] = [4]float32{1}
			}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(c.Document, joints0)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(c.Document, weights0)
	}

	var targets []map[string]uint32
	var targetNames []string
	if c.ExportMorphs && len(m.Morphs) > 0 {
		targets, targetNames = c.morphTargets(m, attributes["NORMAL"])
	}

	mesh := &gltf.Mesh{Name: m.Name.String()}
	for i, mat := range m.Materials {
		if len(mat.Surfaces) == 0 {
			continue
		}
		indices := make([]uint32, 0, len(mat.Surfaces)*3)
		for _, s := range mat.Surfaces {
			t := s.Triangle()
			indices = append(indices, uint32(t[2].SerialNumber()), uint32(t[1].SerialNumber()), uint32(t[0].SerialNumber()))
		}
		c.Document.Materials = append(c.Document.Materials, c.convertMaterial(i, mat))
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(c.Document, indices)),
			Attributes: attributes,
			Material:   gltf.Index(uint32(len(c.Document.Materials) - 1)),
			Targets:    targets,
		})
	}
	if targetNames != nil {
		mesh.Extras = map[string]interface{}{"targetNames": targetNames}
	}

	node := &gltf.Node{Name: m.Name.String()}
	if len(mesh.Primitives) > 0 {
		node.Mesh = gltf.Index(uint32(len(c.Meshes)))
		c.Meshes = append(c.Meshes, mesh)
	}
	if skinned {
		node.Skin = gltf.Index(c.addSkin(m, joints))
	}
	c.Nodes = append(c.Nodes, node)
	c.Scenes[0].Nodes = append(c.Scenes[0].Nodes, uint32(len(c.Nodes)-1))

	if len(c.Textures) > 0 {
		c.Samplers = []*gltf.Sampler{{}}
	}
	return c.Document, nil
}

// PMDToGLTF converts m with the given options.
func PMDToGLTF(m *pmd.Model, options *PMDToGLTFOption) (*gltf.Document, error) {
	return NewPMDToGLTFConverter(options).Convert(m)
}

// SavePMDAsGLB writes m to path as a binary glTF file.
func SavePMDAsGLB(m *pmd.Model, path string, options *PMDToGLTFOption) error {
	doc, err := PMDToGLTF(m, options)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, path)
}
