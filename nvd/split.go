package nvd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/nvd-feed-update/utils"
)

const indent = "    "

type document struct {
	CVEItems *[]json.RawMessage `json:"CVE_Items"`
}

type entryMeta struct {
	CVE *struct {
		DataMeta *struct {
			ID string `json:"ID"`
		} `json:"CVE_data_meta"`
	} `json:"cve"`
}

type entry struct {
	id  string
	raw json.RawMessage
}

// Splitter writes every entry of a yearly document to CVE-<year>/<ID>.json.
type Splitter struct {
	fs       utils.Fs
	dir      string
	progress bool
}

func NewSplitter(fs utils.Fs, dir string, progress bool) Splitter {
	return Splitter{fs: fs, dir: dir, progress: progress}
}

// Split validates the whole document before the first file is written, so a
// malformed document leaves the year directory untouched.
func (s Splitter) Split(ctx context.Context, year int) error {
	docPath := filepath.Join(s.dir, YearDir(year), DocumentName(year))
	b, err := s.fs.ReadFile(docPath)
	if err != nil {
		return newError(FileError, year, xerrors.Errorf("failed to read %s: %w", docPath, err))
	}

	entries, err := parseDocument(year, b)
	if err != nil {
		return err
	}
	log.WithField("year", year).Infof("Splitting %d entries", len(entries))

	var bar *pb.ProgressBar
	if s.progress {
		bar = pb.StartNew(len(entries))
		defer bar.Finish()
	}

	for _, e := range entries {
		if err = ctx.Err(); err != nil {
			return newError(CanceledError, year, xerrors.Errorf("split aborted: %w", err))
		}
		if err = s.write(year, e); err != nil {
			return err
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return nil
}

func (s Splitter) write(year int, e entry) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, e.raw, "", indent); err != nil {
		return newError(DecodeError, year, xerrors.Errorf("failed to indent %s: %w", e.id, err))
	}

	filePath := filepath.Join(s.dir, YearDir(year), fmt.Sprintf("%s.json", e.id))
	if err := s.fs.WriteFile(filePath, buf.Bytes()); err != nil {
		return newError(FileError, year, xerrors.Errorf("failed to write %s: %w", filePath, err))
	}
	return nil
}

func parseDocument(year int, b []byte) ([]entry, error) {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if xerrors.As(err, &typeErr) {
			return nil, newError(SchemaError, year, xerrors.Errorf("unexpected document layout: %w", err))
		}
		return nil, newError(DecodeError, year, xerrors.Errorf("failed to decode %s: %w", DocumentName(year), err))
	}
	if doc.CVEItems == nil {
		return nil, newError(SchemaError, year, xerrors.New("CVE_Items not found"))
	}

	entries := make([]entry, 0, len(*doc.CVEItems))
	for i, raw := range *doc.CVEItems {
		id, err := entryID(raw)
		if err != nil {
			return nil, newError(SchemaError, year, xerrors.Errorf("CVE_Items[%d]: %w", i, err))
		}
		entries = append(entries, entry{id: id, raw: raw})
	}
	return entries, nil
}

func entryID(raw json.RawMessage) (string, error) {
	var meta entryMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", xerrors.Errorf("unable to decode entry: %w", err)
	}
	if meta.CVE == nil || meta.CVE.DataMeta == nil || meta.CVE.DataMeta.ID == "" {
		return "", xerrors.New("cve.CVE_data_meta.ID not found")
	}

	id := meta.CVE.DataMeta.ID
	if strings.ContainsAny(id, `/\`) || strings.ContainsFunc(id, unicode.IsControl) || id == "." || id == ".." {
		return "", xerrors.Errorf("invalid CVE-ID format: %s", id)
	}
	return id, nil
}
