package storage

import (
	"io"
	"os"
	"path/filepath"
)

// Files is the filesystem primitive the recorder and services depend on.
type Files interface {
	Move(src, dst string) error
	Delete(path string) error
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
	EnsureDir(path string) error
	ClearDir(path string) error
}

type localFiles struct{}

func NewLocalFiles() Files {
	return localFiles{}
}

func (localFiles) Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// rename fails across devices; copy + remove instead
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func (localFiles) Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (localFiles) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (localFiles) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (localFiles) EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// ClearDir removes the directory contents but keeps the directory.
func (localFiles) ClearDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}
