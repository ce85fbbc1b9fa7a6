package config

import (
	"net/url"
	"os"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/aquasecurity/nvd-feed-update/utils"
)

const (
	// NVD provides feeds from 2002
	DefaultBaseYear    = 2002
	DefaultFeedURL     = "https://nvd.nist.gov/feeds/json/cve/1.1"
	DefaultAPIURL      = "https://services.nvd.nist.gov/rest/json/cve/1.0"
	DefaultTimeout     = 10 * time.Minute
	DefaultConcurrency = 1

	// CVE-IDs start in 1999
	minBaseYear = 1999

	ClientGorequest = "gorequest"
	ClientGetter    = "getter"
)

var supportedClients = []string{ClientGorequest, ClientGetter}

type Config struct {
	// OutputDir is the root of the CVE-<year> tree. Empty means the working directory.
	OutputDir   string        `yaml:"output_dir"`
	BaseYear    int           `yaml:"base_year"`
	FeedURL     string        `yaml:"feed_url"`
	APIURL      string        `yaml:"api_url"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	Client      string        `yaml:"client"`
}

func Default() Config {
	return Config{
		BaseYear:    DefaultBaseYear,
		FeedURL:     DefaultFeedURL,
		APIURL:      DefaultAPIURL,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Client:      ClientGorequest,
	}
}

// Load applies the YAML file at path (if any) and then the environment on top of the defaults.
func Load(path string) (Config, error) {
	conf := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, xerrors.Errorf("unable to read config file: %w", err)
		}
		if err = yaml.UnmarshalStrict(b, &conf); err != nil {
			return Config{}, xerrors.Errorf("unable to decode config file %s: %w", path, err)
		}
	}

	conf.OutputDir = utils.LookupEnv("NVD_OUTPUT_DIR", conf.OutputDir)
	conf.FeedURL = utils.LookupEnv("NVD_FEED_URL", conf.FeedURL)
	conf.APIURL = utils.LookupEnv("NVD_API_URL", conf.APIURL)

	return conf, nil
}

func (c Config) Validate() error {
	if c.BaseYear < minBaseYear {
		return xerrors.Errorf("invalid base year: %d", c.BaseYear)
	}
	if c.Concurrency < 1 {
		return xerrors.Errorf("concurrency must be positive: %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return xerrors.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if !slices.Contains(supportedClients, c.Client) {
		return xerrors.Errorf("unknown client %q (supported: %v)", c.Client, supportedClients)
	}
	for name, u := range map[string]string{"feed": c.FeedURL, "api": c.APIURL} {
		if err := validateURL(u); err != nil {
			return xerrors.Errorf("invalid %s url: %w", name, err)
		}
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return xerrors.Errorf("unsupported scheme in %q", s)
	}
	return nil
}
