package ioutils

import (
	"io"
	"os"
	"path/filepath"
)

// AtomicWriteFile atomically writes data to a file specified by filename.
// Readers of filename observe either the previous content or data, never a
// partial write.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(filename), ".tmp-"+filepath.Base(filename))
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := writeSync(f, data, perm); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filename)
}

func writeSync(f *os.File, data []byte, perm os.FileMode) error {
	if err := f.Chmod(perm); err != nil {
		return err
	}
	n, err := f.Write(data)
	if err == nil && n < len(data) {
		return io.ErrShortWrite
	}
	if err != nil {
		return err
	}
	return f.Sync()
}
