package nvd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/nvd-feed-update/utils"
)

// Client fetches the raw body of url.
type Client interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Fetcher downloads the yearly archive and stores the decompressed document.
type Fetcher struct {
	client      Client
	fs          utils.Fs
	dir         string
	feedURL     string
	provisioner Provisioner
}

func NewFetcher(client Client, fs utils.Fs, dir, feedURL string) Fetcher {
	return Fetcher{
		client:      client,
		fs:          fs,
		dir:         dir,
		feedURL:     feedURL,
		provisioner: NewProvisioner(fs, dir),
	}
}

// Fetch writes <dir>/CVE-<year>/nvdcve-1.1-<year>.json, creating the year directory
// when needed. Nothing is written unless the whole archive was fetched and decompressed.
func (f Fetcher) Fetch(ctx context.Context, year int) error {
	url := ArchiveURL(f.feedURL, year)
	log.WithField("year", year).Infof("Fetching %s", url)

	body, err := f.client.Fetch(ctx, url)
	if err != nil {
		return newError(NetworkError, year, xerrors.Errorf("failed to fetch %s: %w", url, err))
	}

	doc, err := decompress(body)
	if err != nil {
		return newError(DecodeError, year, xerrors.Errorf("failed to decompress %s: %w", url, err))
	}

	if err = f.provisioner.provisionYear(year); err != nil {
		return err
	}

	filePath := filepath.Join(f.dir, YearDir(year), DocumentName(year))
	if err = f.fs.WriteFile(filePath, doc); err != nil {
		return newError(FileError, year, xerrors.Errorf("failed to write %s: %w", filePath, err))
	}
	log.WithField("year", year).Debugf("Saved %s (%d bytes)", filePath, len(doc))

	return nil
}

func decompress(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, xerrors.Errorf("failed to create gzip reader: %w", err)
	}
	defer r.Close()

	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("failed to read gzip stream: %w", err)
	}
	return doc, nil
}
