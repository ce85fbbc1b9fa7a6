package nvd_test

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

var (
	testDocument  = mustReadFile("testdata/nvdcve-1.1-2023.json")
	wantEntry0001 = mustReadFile("testdata/golden/CVE-2023-0001.json")
	wantEntry0002 = mustReadFile("testdata/golden/CVE-2023-0002.json")
)

func mustReadFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

type fakeClient struct {
	mu        sync.Mutex
	responses map[string][]byte
	requested []string
}

func (c *fakeClient) Fetch(_ context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = append(c.requested, url)

	b, ok := c.responses[url]
	if !ok {
		return nil, xerrors.Errorf("HTTP error. status code: 404, url: %s", url)
	}
	return b, nil
}
