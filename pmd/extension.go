package pmd

import (
	"fmt"
	"strings"
)

// Extension is the last optional trailing section present in a file.
// Each level includes every lower one.
type Extension int

const (
	ExtBase Extension = iota
	ExtEnglish
	ExtToon
	ExtPhysics
)

func (e Extension) String() string {
	switch e {
	case ExtBase:
		return "base"
	case ExtEnglish:
		return "english"
	case ExtToon:
		return "toon"
	case ExtPhysics:
		return "physics"
	default:
		return fmt.Sprintf("Extension(%d)", int(e))
	}
}

// ParseExtension accepts the names returned by Extension.String.
func ParseExtension(s string) (Extension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base":
		return ExtBase, nil
	case "english":
		return ExtEnglish, nil
	case "toon":
		return ExtToon, nil
	case "physics", "":
		return ExtPhysics, nil
	}
	return ExtBase, fmt.Errorf("pmd: unknown extension %q", s)
}

// UnmarshalYAML decodes an extension name.
func (e *Extension) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseExtension(s)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// MarshalYAML encodes the extension name.
func (e Extension) MarshalYAML() (interface{}, error) {
	return e.String(), nil
}
