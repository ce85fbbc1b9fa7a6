package nvd

import (
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/aquasecurity/nvd-feed-update/utils"
)

// Provisioner creates the CVE-<year> directories under the output dir.
type Provisioner struct {
	fs  utils.Fs
	dir string
}

func NewProvisioner(fs utils.Fs, dir string) Provisioner {
	return Provisioner{fs: fs, dir: dir}
}

// Provision creates one directory per year in r. Existing directories are kept as is.
func (p Provisioner) Provision(r YearRange) error {
	for _, year := range r.Years() {
		if err := p.provisionYear(year); err != nil {
			return err
		}
	}
	return nil
}

func (p Provisioner) provisionYear(year int) error {
	dir := filepath.Join(p.dir, YearDir(year))
	if err := p.fs.MkdirAll(dir); err != nil {
		return newError(DirectoryError, year, xerrors.Errorf("failed to provision %s: %w", dir, err))
	}
	return nil
}
