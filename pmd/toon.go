package pmd

import "fmt"

const (
	// ToonCount is the number of custom toon slots stored in the file.
	ToonCount = 10
	// ToonIndexDefault selects the built-in toon texture.
	ToonIndexDefault = 0xff
	defaultToonFile  = "toon0.bmp"
)

// ToonMap maps material toon indices to texture file names.
type ToonMap struct {
	files map[int]string
}

// NewToonMap returns a map holding the default file names.
func NewToonMap() *ToonMap {
	t := &ToonMap{}
	t.Reset()
	return t
}

// DefaultToonFile returns the default file name for index i.
func DefaultToonFile(i int) string {
	if i == ToonIndexDefault {
		return defaultToonFile
	}
	if i >= 0 && i < ToonCount {
		return fmt.Sprintf("toon%02d.bmp", i+1)
	}
	return ""
}

// Get returns the file name for index i. Missing entries are empty.
func (t *ToonMap) Get(i int) string {
	return t.files[i]
}

func (t *ToonMap) Set(i int, file string) {
	t.files[i] = file
}

// Reset restores every default entry.
func (t *ToonMap) Reset() {
	t.files = map[int]string{ToonIndexDefault: defaultToonFile}
	for i := 0; i < ToonCount; i++ {
		t.files[i] = DefaultToonFile(i)
	}
}

// ResetIndex restores the default entry for index i.
func (t *ToonMap) ResetIndex(i int) {
	if f := DefaultToonFile(i); f != "" {
		t.files[i] = f
	} else {
		delete(t.files, i)
	}
}

// IsDefaultToon reports whether index i holds its default file name.
func (t *ToonMap) IsDefaultToon(i int) bool {
	f, ok := t.files[i]
	return ok && f == DefaultToonFile(i)
}

// IsDefault reports whether every entry holds its default file name.
func (t *ToonMap) IsDefault() bool {
	for i := 0; i < ToonCount; i++ {
		if !t.IsDefaultToon(i) {
			return false
		}
	}
	return t.IsDefaultToon(ToonIndexDefault) && len(t.files) == ToonCount+1
}
