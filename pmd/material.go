package pmd

import (
	"fmt"
	"strings"
)

const (
	sphereExtSph = ".sph"
	sphereExtSpa = ".spa"
	shadingSep   = "*"
)

// ShadeInfo is the toon and texture binding of a material.
type ShadeInfo struct {
	// ToonIndex selects an entry of the model's ToonMap.
	ToonIndex int
	Texture   string
	SphereMap string
}

// ShadingFile returns the combined file slot as stored in the file.
func (s *ShadeInfo) ShadingFile() string {
	return JoinShadingFile(s.Texture, s.SphereMap)
}

// SetShadingFile splits a stored file slot into texture and sphere map.
func (s *ShadeInfo) SetShadingFile(name string) {
	s.Texture, s.SphereMap = SplitShadingFile(name)
}

// SplitShadingFile splits "tex*sph". A single name is a sphere map when it
// ends with .sph or .spa, otherwise a texture.
func SplitShadingFile(name string) (texture, sphere string) {
	if i := strings.Index(name, shadingSep); i >= 0 {
		return name[:i], name[i+1:]
	}
	if isSphereMapFile(name) {
		return "", name
	}
	return name, ""
}

// JoinShadingFile is the inverse of SplitShadingFile.
func JoinShadingFile(texture, sphere string) string {
	switch {
	case sphere == "":
		return texture
	case texture == "":
		return sphere
	default:
		return texture + shadingSep + sphere
	}
}

func isSphereMapFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, sphereExtSph) || strings.HasSuffix(lower, sphereExtSpa)
}

// Material colors a run of surfaces.
type Material struct {
	Diffuse   Color
	Shininess float32
	specular  Color
	ambient   Color
	ShowEdge  bool
	Shade     ShadeInfo
	Surfaces  []*Surface
}

func NewMaterial() *Material {
	return &Material{
		Diffuse:  Color{A: 1},
		specular: Color{A: 1},
		ambient:  Color{A: 1},
	}
}

// Specular returns the specular color. Alpha is always 1.
func (m *Material) Specular() Color { return m.specular.Opaque() }

// SetSpecular sets the specular color ignoring alpha.
func (m *Material) SetSpecular(c Color) { m.specular = c.Opaque() }

// Ambient returns the ambient color. Alpha is always 1.
func (m *Material) Ambient() Color { return m.ambient.Opaque() }

// SetAmbient sets the ambient color ignoring alpha.
func (m *Material) SetAmbient(c Color) { m.ambient = c.Opaque() }

func (m *Material) String() string {
	return fmt.Sprintf("Material diffuse=%v shininess=%g toon=%d texture=%q sphere=%q surfaces=%d",
		m.Diffuse, m.Shininess, m.Shade.ToonIndex, m.Shade.Texture, m.Shade.SphereMap, len(m.Surfaces))
}
