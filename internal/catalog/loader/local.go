package loader

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

func readFile(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func readFS(files fs.FS, name string) ([]byte, error) {
	if files == nil {
		return nil, ErrNoFileSystem
	}
	f, err := files.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxDocumentBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxDocumentBytes)
	}
	return data, nil
}
