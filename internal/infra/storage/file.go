package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore はディレクトリ配下に <name>.json として保存する
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Slot(name string) Slot {
	return &fileSlot{dir: s.dir, path: filepath.Join(s.dir, name+".json")}
}

func (s *FileStore) Close() error { return nil }

type fileSlot struct {
	dir  string
	path string
}

func (f *fileSlot) Load(ctx context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// 一時ファイルに書いてからrenameする（途中で落ちても前の値が残る）
func (f *fileSlot) Save(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (f *fileSlot) Clear(ctx context.Context) error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
