package utils

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	getter "github.com/hashicorp/go-getter"
	"golang.org/x/xerrors"
)

// GetterClient downloads through go-getter. Archives are kept compressed so that
// callers receive the raw payload, the same as with HTTPClient.
type GetterClient struct {
	Timeout time.Duration
	Header  http.Header
}

func NewGetterClient(timeout time.Duration, header map[string]string) GetterClient {
	h := http.Header{}
	for k, v := range header {
		h.Set(k, v)
	}
	return GetterClient{
		Timeout: timeout,
		Header:  h,
	}
}

func (c GetterClient) Fetch(ctx context.Context, src string) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	u, err := url.Parse(src)
	if err != nil {
		return nil, xerrors.Errorf("unable to parse %q: %w", src, err)
	}
	q := u.Query()
	q.Set("archive", "false")
	u.RawQuery = q.Encode()

	tmpDir, err := os.MkdirTemp("", "nvd-feed-update")
	if err != nil {
		return nil, xerrors.Errorf("failed to create a temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// go-getter resumes into an existing destination, so the file must not exist yet.
	dst := filepath.Join(tmpDir, "payload")
	if err = download(ctx, u.String(), dst, c.getters()); err != nil {
		return nil, xerrors.Errorf("download error: %w", err)
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", dst, err)
	}
	return b, nil
}

func (c GetterClient) getters() map[string]getter.Getter {
	hg := &getter.HttpGetter{
		Client: cleanhttp.DefaultClient(),
		Header: c.Header,
	}
	return map[string]getter.Getter{
		"http":  hg,
		"https": hg,
	}
}

func download(ctx context.Context, src, dst string, getters map[string]getter.Getter) error {
	pwd, err := os.Getwd()
	if err != nil {
		return xerrors.Errorf("unable to get the current dir: %w", err)
	}

	client := &getter.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Getters: getters,
		Mode:    getter.ClientModeFile,
	}

	if err = client.Get(); err != nil {
		return xerrors.Errorf("failed to download: %w", err)
	}

	return nil
}
