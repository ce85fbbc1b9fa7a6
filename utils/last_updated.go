package utils

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

const (
	lastUpdatedFile = "last_updated.json"
)

type LastUpdated map[string]time.Time

// GetLastUpdatedDate returns the Unix epoch when key has never been recorded.
func (fs Fs) GetLastUpdatedDate(dir, key string) (time.Time, error) {
	lastUpdated, err := fs.getLastUpdated(dir)
	if err != nil {
		return time.Time{}, err
	}

	t, ok := lastUpdated[key]
	if !ok {
		return time.Unix(0, 0), nil
	}

	return t, nil
}

func (fs Fs) getLastUpdated(dir string) (LastUpdated, error) {
	lastUpdated := LastUpdated{}
	filePath := filepath.Join(dir, lastUpdatedFile)
	ok, err := afero.Exists(fs.AppFs, filePath)
	if err != nil {
		return nil, xerrors.Errorf("failed to stat %s: %w", filePath, err)
	} else if !ok {
		return lastUpdated, nil
	}

	b, err := fs.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(b, &lastUpdated); err != nil {
		return nil, xerrors.Errorf("failed to decode %s: %w", filePath, err)
	}

	return lastUpdated, nil
}

// SetLastUpdatedDates merges dates into dir/last_updated.json.
func (fs Fs) SetLastUpdatedDates(dir string, dates LastUpdated) error {
	lastUpdated, err := fs.getLastUpdated(dir)
	if err != nil {
		return xerrors.Errorf("failed to get last updated date: %w", err)
	}
	for k, t := range dates {
		lastUpdated[k] = t
	}

	if err = fs.WriteJSON(filepath.Join(dir, lastUpdatedFile), lastUpdated); err != nil {
		return xerrors.Errorf("failed to write last updated date: %w", err)
	}

	return nil
}
