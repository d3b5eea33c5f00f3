package fs

import "bytes"

// Transform computes the full new content of a file from its current content.
type Transform func(old []byte) ([]byte, error)

// RewriteFile reads path, applies fn and replaces the file with the result
// via WriteFileAtomic, keeping the original permission bits.
// Nothing is written when fn fails or returns content equal to the original.
// Reports whether the file content changed.
func RewriteFile(fsys FS, path string, fn Transform) (bool, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return false, err
	}
	old, err := fsys.ReadFile(path)
	if err != nil {
		return false, err
	}

	updated, err := fn(old)
	if err != nil {
		return false, err
	}
	if bytes.Equal(old, updated) {
		return false, nil
	}

	if err := WriteFileAtomic(fsys, path, updated, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}
