package nvd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/nvd-feed-update/config"
	"github.com/aquasecurity/nvd-feed-update/utils"
)

const (
	yearDirFormat  = "CVE-%d"
	documentFormat = "nvdcve-1.1-%d.json"
	archiveExt     = ".gz"
)

var header = map[string]string{"Content-Type": "application/json"}

// YearDir is the directory name of year, relative to the output dir.
func YearDir(year int) string {
	return fmt.Sprintf(yearDirFormat, year)
}

func DocumentName(year int) string {
	return fmt.Sprintf(documentFormat, year)
}

func ArchiveURL(feedURL string, year int) string {
	return strings.TrimSuffix(feedURL, "/") + "/" + DocumentName(year) + archiveExt
}

type options struct {
	appFs    afero.Fs
	client   Client
	now      func() time.Time
	progress bool
}

type option func(*options)

func WithFs(appFs afero.Fs) option {
	return func(opts *options) {
		opts.appFs = appFs
	}
}

func WithClient(client Client) option {
	return func(opts *options) {
		opts.client = client
	}
}

func WithNow(now func() time.Time) option {
	return func(opts *options) {
		opts.now = now
	}
}

func WithProgress(progress bool) option {
	return func(opts *options) {
		opts.progress = progress
	}
}

type Updater struct {
	*options
	conf        config.Config
	fs          utils.Fs
	provisioner Provisioner
	fetcher     Fetcher
	splitter    Splitter
}

// NewUpdater fails with a ConfigurationError when conf is invalid or when an
// explicitly configured output directory does not exist.
func NewUpdater(conf config.Config, opts ...option) (Updater, error) {
	if err := conf.Validate(); err != nil {
		return Updater{}, newError(ConfigurationError, 0, err)
	}

	o := &options{
		appFs: afero.NewOsFs(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = newClient(conf)
	}

	fs := utils.NewFs(o.appFs)
	if conf.OutputDir == "" {
		conf.OutputDir = utils.DefaultOutputDir()
	} else if ok, err := fs.DirExists(conf.OutputDir); err != nil {
		return Updater{}, newError(ConfigurationError, 0, xerrors.Errorf("unable to stat output directory %s: %w", conf.OutputDir, err))
	} else if !ok {
		return Updater{}, newError(ConfigurationError, 0, xerrors.Errorf("output directory %s does not exist", conf.OutputDir))
	}

	return Updater{
		options:     o,
		conf:        conf,
		fs:          fs,
		provisioner: NewProvisioner(fs, conf.OutputDir),
		fetcher:     NewFetcher(o.client, fs, conf.OutputDir, conf.FeedURL),
		splitter:    NewSplitter(fs, conf.OutputDir, o.progress && conf.Concurrency == 1),
	}, nil
}

func newClient(conf config.Config) Client {
	if conf.Client == config.ClientGetter {
		return utils.NewGetterClient(conf.Timeout, header)
	}
	return utils.NewHTTPClient(conf.Timeout, header)
}

func (u Updater) OutputDir() string {
	return u.conf.OutputDir
}

// YearRange resolves optional bounds; 0 means unset.
func (u Updater) YearRange(start, end int) (YearRange, error) {
	return NewYearRange(start, end, u.conf.BaseYear, u.now().Year())
}

// Provision creates the directories for every supported year.
func (u Updater) Provision() error {
	r := YearRange{Start: u.conf.BaseYear, End: u.now().Year()}
	log.Infof("Provisioning %s under %s", r, u.conf.OutputDir)
	return u.provisioner.Provision(r)
}

// Download fetches the documents of r. The returned error is only set when the
// last-updated bookkeeping fails; per-year failures are in Results.
func (u Updater) Download(ctx context.Context, r YearRange) (Results, error) {
	log.Infof("Downloading NVD JSON feeds %s", r)
	results := u.forEachYear(ctx, r, StepFetch, func(ctx context.Context, year int) (Step, error) {
		return StepFetch, u.fetcher.Fetch(ctx, year)
	})
	if err := u.setLastUpdated(results); err != nil {
		return results, err
	}
	return results, nil
}

func (u Updater) Split(ctx context.Context, r YearRange) Results {
	log.Infof("Splitting NVD JSON feeds %s", r)
	return u.forEachYear(ctx, r, StepSplit, func(ctx context.Context, year int) (Step, error) {
		return StepSplit, u.splitter.Split(ctx, year)
	})
}

// Update runs fetch and split back to back for each year of r.
func (u Updater) Update(ctx context.Context, r YearRange) (Results, error) {
	log.Infof("Updating NVD JSON feeds %s", r)
	results := u.forEachYear(ctx, r, StepFetch, func(ctx context.Context, year int) (Step, error) {
		if err := u.fetcher.Fetch(ctx, year); err != nil {
			return StepFetch, err
		}
		return StepSplit, u.splitter.Split(ctx, year)
	})
	if err := u.setLastUpdated(results); err != nil {
		return results, err
	}
	return results, nil
}

type yearFunc func(ctx context.Context, year int) (Step, error)

// forEachYear runs fn for every year of r on at most conf.Concurrency goroutines.
// A year is handled by exactly one goroutine and a failure never stops other years.
// first is reported for years skipped before fn ran.
func (u Updater) forEachYear(ctx context.Context, r YearRange, first Step, fn yearFunc) Results {
	years := r.Years()
	results := make(Results, len(years))

	var bar *pb.ProgressBar
	if u.progress && u.conf.Concurrency > 1 {
		bar = pb.StartNew(len(years))
		defer bar.Finish()
	}

	var g errgroup.Group
	g.SetLimit(u.conf.Concurrency)
	for i, year := range years {
		i, year := i, year
		g.Go(func() error {
			step, err := u.runYear(ctx, year, first, fn)
			results[i] = Result{Year: year, Step: step, Err: err}
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (u Updater) runYear(ctx context.Context, year int, first Step, fn yearFunc) (Step, error) {
	if err := ctx.Err(); err != nil {
		return first, newError(CanceledError, year, xerrors.Errorf("skipped: %w", err))
	}
	step, err := fn(ctx, year)
	if err != nil {
		log.WithFields(log.Fields{"year": year, "step": step}).Errorf("%+v", err)
		return step, err
	}
	return step, nil
}

func (u Updater) setLastUpdated(results Results) error {
	years := results.SucceededYears()
	if len(years) == 0 {
		return nil
	}

	now := u.now().UTC()
	dates := utils.LastUpdated{}
	for _, year := range years {
		dates[YearDir(year)] = now
	}
	if err := u.fs.SetLastUpdatedDates(u.conf.OutputDir, dates); err != nil {
		return newError(FileError, 0, xerrors.Errorf("failed to record last updated dates: %w", err))
	}
	return nil
}
