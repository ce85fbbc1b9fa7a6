package nvd_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquasecurity/nvd-feed-update/config"
	"github.com/aquasecurity/nvd-feed-update/nvd"
	"github.com/aquasecurity/nvd-feed-update/utils"
)

var fakeNow = func() time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
}

func TestNewUpdater(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *config.Config)
		wantErr string
	}{
		{
			name:   "existing output dir",
			modify: func(c *config.Config) { c.OutputDir = "/out" },
		},
		{
			name:   "default output dir",
			modify: func(c *config.Config) { c.OutputDir = "" },
		},
		{
			name:    "missing output dir",
			modify:  func(c *config.Config) { c.OutputDir = "/missing" },
			wantErr: "output directory /missing does not exist",
		},
		{
			name:    "invalid config",
			modify:  func(c *config.Config) { c.Concurrency = 0 },
			wantErr: "concurrency must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appFs := afero.NewMemMapFs()
			require.NoError(t, appFs.MkdirAll("/out", os.ModePerm))

			conf := config.Default()
			tt.modify(&conf)

			u, err := nvd.NewUpdater(conf, nvd.WithFs(appFs))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, nvd.IsKind(err, nvd.ConfigurationError))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, u.OutputDir())
		})
	}
}

func TestUpdater_Provision(t *testing.T) {
	appFs := afero.NewMemMapFs()
	require.NoError(t, appFs.MkdirAll("/out", os.ModePerm))

	conf := config.Default()
	conf.OutputDir = "/out"
	u, err := nvd.NewUpdater(conf, nvd.WithFs(appFs), nvd.WithNow(fakeNow))
	require.NoError(t, err)
	require.NoError(t, u.Provision())

	for year := 2002; year <= 2024; year++ {
		ok, err := afero.DirExists(appFs, filepath.Join("/out", nvd.YearDir(year)))
		require.NoError(t, err)
		assert.True(t, ok, year)
	}
	ok, err := afero.DirExists(appFs, "/out/CVE-2025")
	require.NoError(t, err)
	assert.False(t, ok)
}

// provision, fetch and split against a fake NVD server on the real filesystem
func TestUpdater_EndToEnd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		}
		if r.URL.Path != "/feeds/json/cve/1.1/nvdcve-1.1-2023.json.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(gzipBytes(t, testDocument))
	}))
	defer ts.Close()

	for _, client := range []string{config.ClientGorequest, config.ClientGetter} {
		t.Run(client, func(t *testing.T) {
			tmpDir := t.TempDir()
			conf := config.Default()
			conf.OutputDir = tmpDir
			conf.FeedURL = ts.URL + "/feeds/json/cve/1.1"
			conf.Client = client
			conf.Timeout = 10 * time.Second

			u, err := nvd.NewUpdater(conf, nvd.WithNow(fakeNow))
			require.NoError(t, err)

			r, err := u.YearRange(2023, 2023)
			require.NoError(t, err)

			require.NoError(t, u.Provision())
			results, err := u.Download(context.Background(), r)
			require.NoError(t, err)
			require.NoError(t, results.Err())
			results = u.Split(context.Background(), r)
			require.NoError(t, results.Err())

			entries, err := os.ReadDir(filepath.Join(tmpDir, "CVE-2023"))
			require.NoError(t, err)
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			assert.Equal(t, []string{"CVE-2023-0001.json", "CVE-2023-0002.json", "nvdcve-1.1-2023.json"}, names)

			for name, want := range map[string]string{
				"nvdcve-1.1-2023.json": testDocument,
				"CVE-2023-0001.json":   wantEntry0001,
				"CVE-2023-0002.json":   wantEntry0002,
			} {
				got, err := os.ReadFile(filepath.Join(tmpDir, "CVE-2023", name))
				require.NoError(t, err)
				assert.Equal(t, want, string(got), name)
			}

			got, err := utils.NewFs(afero.NewOsFs()).GetLastUpdatedDate(tmpDir, "CVE-2023")
			require.NoError(t, err)
			assert.True(t, fakeNow().Equal(got))
		})
	}
}

func TestUpdater_UpdatePartialFailure(t *testing.T) {
	appFs := afero.NewMemMapFs()
	require.NoError(t, appFs.MkdirAll("/out", os.ModePerm))

	client := &fakeClient{responses: map[string][]byte{
		config.DefaultFeedURL + "/nvdcve-1.1-2020.json.gz": gzipBytes(t, `{"CVE_Items": [{"cve": {"CVE_data_meta": {"ID": "CVE-2020-0001"}}}]}`),
		config.DefaultFeedURL + "/nvdcve-1.1-2021.json.gz": []byte("not gzip"),
		config.DefaultFeedURL + "/nvdcve-1.1-2023.json.gz": gzipBytes(t, `{"CVE_data_type": "CVE"}`),
		config.DefaultFeedURL + "/nvdcve-1.1-2024.json.gz": gzipBytes(t, testDocument),
	}}

	conf := config.Default()
	conf.OutputDir = "/out"
	conf.Concurrency = 3
	u, err := nvd.NewUpdater(conf, nvd.WithFs(appFs), nvd.WithClient(client), nvd.WithNow(fakeNow))
	require.NoError(t, err)

	r, err := u.YearRange(2020, 0)
	require.NoError(t, err)

	results, err := u.Update(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, results, 5)

	tests := map[int]struct {
		wantStep nvd.Step
		wantKind nvd.ErrorKind
	}{
		2020: {wantStep: nvd.StepSplit},
		2021: {wantStep: nvd.StepFetch, wantKind: nvd.DecodeError},
		2022: {wantStep: nvd.StepFetch, wantKind: nvd.NetworkError},
		2023: {wantStep: nvd.StepSplit, wantKind: nvd.SchemaError},
		2024: {wantStep: nvd.StepSplit},
	}
	for _, res := range results {
		tt, ok := tests[res.Year]
		require.True(t, ok, res.Year)
		assert.Equal(t, tt.wantStep, res.Step, res.Year)
		if tt.wantKind == 0 {
			assert.True(t, res.OK(), "year %d: %v", res.Year, res.Err)
			continue
		}
		require.Error(t, res.Err, res.Year)
		assert.True(t, nvd.IsKind(res.Err, tt.wantKind), "year %d: %v", res.Year, res.Err)
	}
	assert.Equal(t, []int{2020, 2021, 2022, 2023, 2024}, []int{results[0].Year, results[1].Year, results[2].Year, results[3].Year, results[4].Year})
	assert.Equal(t, []int{2020, 2024}, results.SucceededYears())
	assert.Len(t, results.Failed(), 3)
	assert.ErrorContains(t, results.Err(), "3 errors occurred")

	// entries are named by ID, not by the year of the feed
	for path, want := range map[string]bool{
		"/out/CVE-2020/CVE-2020-0001.json":   true,
		"/out/CVE-2023/nvdcve-1.1-2023.json": true,
		"/out/CVE-2024/nvdcve-1.1-2024.json": true,
		"/out/CVE-2021/nvdcve-1.1-2021.json": false,
		"/out/CVE-2022/nvdcve-1.1-2022.json": false,
		"/out/CVE-2024/CVE-2023-0001.json":   true,
	} {
		ok, err := afero.Exists(appFs, path)
		require.NoError(t, err)
		assert.Equal(t, want, ok, path)
	}

	fs := utils.NewFs(appFs)
	for year, want := range map[int]bool{2020: true, 2021: false, 2023: false, 2024: true} {
		got, err := fs.GetLastUpdatedDate("/out", nvd.YearDir(year))
		require.NoError(t, err)
		assert.Equal(t, want, fakeNow().Equal(got), year)
	}
}

func TestUpdater_Canceled(t *testing.T) {
	appFs := afero.NewMemMapFs()
	require.NoError(t, appFs.MkdirAll("/out", os.ModePerm))

	conf := config.Default()
	conf.OutputDir = "/out"
	client := &fakeClient{}
	u, err := nvd.NewUpdater(conf, nvd.WithFs(appFs), nvd.WithClient(client), nvd.WithNow(fakeNow))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := u.Download(ctx, nvd.YearRange{Start: 2022, End: 2023})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.True(t, nvd.IsKind(res.Err, nvd.CanceledError), "year %d: %v", res.Year, res.Err)
		assert.Equal(t, nvd.StepFetch, res.Step, res.Year)
	}
	assert.Empty(t, client.requested)
}
