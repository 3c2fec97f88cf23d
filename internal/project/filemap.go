package project

import "slices"

// Well-known group keys.
const (
	GroupJS    = "js_files"
	GroupCSS   = "css_files"
	GroupSubst = "subst_files"
)

// FileMap is an ordered mapping of group key to files, the merged view of a
// build across packages. Keys keep first-appearance order.
type FileMap struct {
	keys  []string
	files map[string][]string
}

// NewFileMap returns an empty map.
func NewFileMap() *FileMap {
	return &FileMap{files: make(map[string][]string)}
}

// Append adds files to key, registering the key even when files is empty.
func (m *FileMap) Append(key string, files ...string) {
	if _, ok := m.files[key]; !ok {
		m.keys = append(m.keys, key)
		m.files[key] = []string{}
	}
	m.files[key] = append(m.files[key], files...)
}

// Set replaces the files of key.
func (m *FileMap) Set(key string, files []string) {
	if _, ok := m.files[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.files[key] = slices.Clone(files)
}

// Has reports whether key was declared by any package.
func (m *FileMap) Has(key string) bool {
	_, ok := m.files[key]
	return ok
}

// Files returns the files of key.
func (m *FileMap) Files(key string) []string {
	return slices.Clone(m.files[key])
}

// Keys returns the group keys in first-appearance order.
func (m *FileMap) Keys() []string {
	return slices.Clone(m.keys)
}

// All returns every file of every group in key order, duplicates included.
func (m *FileMap) All() []string {
	var out []string
	for _, k := range m.keys {
		out = append(out, m.files[k]...)
	}
	return out
}
