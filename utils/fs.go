package utils

import (
	"encoding/json"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

type Fs struct {
	AppFs afero.Fs
}

func NewFs(appFs afero.Fs) Fs {
	return Fs{AppFs: appFs}
}

// MkdirAll creates dir and its parents. An existing directory is not an error.
func (fs Fs) MkdirAll(dir string) error {
	if err := fs.AppFs.MkdirAll(dir, os.ModePerm); err != nil {
		return xerrors.Errorf("unable to create a directory: %w", err)
	}
	return nil
}

func (fs Fs) DirExists(dir string) (bool, error) {
	return afero.DirExists(fs.AppFs, dir)
}

func (fs Fs) ReadFile(filePath string) ([]byte, error) {
	b, err := afero.ReadFile(fs.AppFs, filePath)
	if err != nil {
		return nil, xerrors.Errorf("unable to read a file: %w", err)
	}
	return b, nil
}

// WriteFile truncates filePath if it already exists.
func (fs Fs) WriteFile(filePath string, b []byte) error {
	f, err := fs.AppFs.Create(filePath)
	if err != nil {
		return xerrors.Errorf("unable to open a file: %w", err)
	}
	defer f.Close()

	if _, err = f.Write(b); err != nil {
		return xerrors.Errorf("failed to save a file: %w", err)
	}
	return nil
}

func (fs Fs) WriteJSON(filePath string, data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal JSON: %w", err)
	}
	return fs.WriteFile(filePath, b)
}
