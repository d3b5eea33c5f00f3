package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// tempSuffix marks temp files created next to a file being replaced.
const tempSuffix = ".devtask-tmp-*"

// tempPattern names the temp file after its target, so a leftover from a
// crashed run shows which file it belonged to.
func tempPattern(path string) string {
	return "." + filepath.Base(path) + tempSuffix
}

// WriteFileAtomic replaces path with data: it writes a temp file in the
// same directory, sets perm on it and renames it over path. On failure the
// temp file is removed and path keeps its previous content.
// The parent directory must exist.
func WriteFileAtomic(fsys FS, path string, data []byte, perm os.FileMode) (err error) {
	tmpPath, w, err := fsys.CreateTemp(filepath.Dir(path), tempPattern(path))
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmpPath)
		}
	}()

	if err := writeAndClose(w, data); err != nil {
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := fsys.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// writeAndClose writes data in full and closes w, reporting the first error.
func writeAndClose(w io.WriteCloser, data []byte) error {
	n, werr := w.Write(data)
	cerr := w.Close()
	switch {
	case werr != nil:
		return werr
	case n < len(data):
		return fmt.Errorf("short write: %d of %d bytes", n, len(data))
	}
	return cerr
}
