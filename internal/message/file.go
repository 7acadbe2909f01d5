package message

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File is a named binary payload. Name is the lossy-UTF-8 basename of the
// path the file was loaded from; bytes are arbitrary.
type File struct {
	Name  string `cbor:"1,keyasint"`
	Bytes []byte `cbor:"2,keyasint"`
}

// FileFromPath reads the file at path into memory. The payload name is the
// path's final component with invalid UTF-8 replaced, or "unknown" when the
// path has no usable basename.
func FileFromPath(path string) (*File, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFile, err)
	}
	return &File{Name: basename(path), Bytes: bytes}, nil
}

// Save creates or replaces dir/<name> and writes the payload bytes to it,
// creating dir as needed. It returns the written path.
func (f *File) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSaveFile, err)
	}
	path := filepath.Join(dir, f.Name)
	if err := os.WriteFile(path, f.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSaveFile, err)
	}
	return path, nil
}

// basename extracts a usable filename from path, falling back to "unknown".
func basename(path string) string {
	name := filepath.Base(filepath.Clean(path))
	switch name {
	case ".", string(filepath.Separator), "":
		return "unknown"
	}
	return strings.ToValidUTF8(name, "�")
}
