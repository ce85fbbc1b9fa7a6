package nvd

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/nvd-feed-update/config"
)

// LookupClient queries the REST API. It never touches the output directory.
type LookupClient struct {
	client Client
	apiURL string
}

// NewLookupClient only validates conf; OutputDir is ignored.
func NewLookupClient(conf config.Config, opts ...option) (LookupClient, error) {
	if err := conf.Validate(); err != nil {
		return LookupClient{}, newError(ConfigurationError, 0, err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.client == nil {
		o.client = newClient(conf)
	}
	return LookupClient{client: o.client, apiURL: conf.APIURL}, nil
}

// Lookup queries the REST API for a single CVE. The response is returned undecoded
// beyond generic JSON.
func (u Updater) Lookup(ctx context.Context, cveID string) (map[string]interface{}, error) {
	return LookupClient{client: u.client, apiURL: u.conf.APIURL}.Lookup(ctx, cveID)
}

func (c LookupClient) Lookup(ctx context.Context, cveID string) (map[string]interface{}, error) {
	cveID = strings.TrimSpace(cveID)
	if cveID == "" {
		return nil, newError(ConfigurationError, 0, xerrors.New("empty CVE-ID"))
	}

	lookupURL, err := url.JoinPath(c.apiURL, cveID)
	if err != nil {
		return nil, newError(ConfigurationError, 0, xerrors.Errorf("unable to build lookup url for %q: %w", cveID, err))
	}
	log.Debugf("Looking up %s", lookupURL)

	b, err := c.client.Fetch(ctx, lookupURL)
	if err != nil {
		return nil, newError(NetworkError, 0, xerrors.Errorf("failed to fetch %s: %w", lookupURL, err))
	}

	var res map[string]interface{}
	if err = json.Unmarshal(b, &res); err != nil {
		return nil, newError(DecodeError, 0, xerrors.Errorf("failed to decode response for %s: %w", cveID, err))
	}
	return res, nil
}
