// Package archive gives read-only access to the entries of a packaged widget.
//
// The whole zip is read into memory once when it is opened, widget packages
// are small and the same bytes are later uploaded as-is.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

const maxEntryBytes = int64(32 * 1024 * 1024)

var (
	ErrNotFound     = errors.New("archive not found")
	ErrEntryMissing = errors.New("archive entry missing")
)

type Archive struct {
	path  string
	data  []byte
	files map[string]*zip.File
}

func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	files := make(map[string]*zip.File, len(reader.File))
	for _, file := range reader.File {
		files[file.Name] = file
	}

	return &Archive{path: path, data: data, files: files}, nil
}

// ReadEntryAsText opens the archive at archivePath and returns the text of a single entry.
func ReadEntryAsText(archivePath, entryPath string) (string, error) {
	a, err := Open(archivePath)
	if err != nil {
		return "", err
	}
	return a.ReadText(entryPath)
}

func (a *Archive) Path() string {
	return a.path
}

// Bytes returns the raw zip, callers must not modify it.
func (a *Archive) Bytes() []byte {
	return a.data
}

func (a *Archive) Has(name string) bool {
	_, ok := a.files[name]
	return ok
}

// ReadText returns the contents of the entry at exactly `name`.
func (a *Archive) ReadText(name string) (string, error) {
	file, ok := a.files[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrEntryMissing, name)
	}

	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open entry %s: %w", name, err)
	}
	defer reader.Close()

	payload, err := io.ReadAll(io.LimitReader(reader, maxEntryBytes+1))
	if err != nil {
		return "", fmt.Errorf("read entry %s: %w", name, err)
	}
	if int64(len(payload)) > maxEntryBytes {
		return "", fmt.Errorf("entry %s is larger than %d bytes", name, maxEntryBytes)
	}
	return string(payload), nil
}
