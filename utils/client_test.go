package utils_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/nvd-feed-update/utils"
)

func TestHTTPClient_Fetch(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		timeout        time.Duration
		want           string
		wantStatusCode int
		wantErr        string
	}{
		{
			name: "happy path",
			path: "/feeds/test.json.gz",
			want: "payload",
		},
		{
			name: "redirect is followed",
			path: "/redirect",
			want: "payload",
		},
		{
			name:           "sad path",
			path:           "/unknown",
			wantStatusCode: http.StatusNotFound,
			wantErr:        "HTTP error. status code: 404",
		},
		{
			name:    "timeout",
			path:    "/slow",
			timeout: 50 * time.Millisecond,
			wantErr: "HTTP error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				switch r.URL.Path {
				case "/feeds/test.json.gz":
					_, _ = w.Write([]byte("payload"))
				case "/redirect":
					http.Redirect(w, r, "/feeds/test.json.gz", http.StatusFound)
				case "/slow":
					time.Sleep(500 * time.Millisecond)
					_, _ = w.Write([]byte("payload"))
				default:
					http.NotFound(w, r)
				}
			}))
			defer ts.Close()

			c := utils.NewHTTPClient(tt.timeout, map[string]string{"Content-Type": "application/json"})
			got, err := c.Fetch(context.Background(), ts.URL+tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				if tt.wantStatusCode != 0 {
					var statusErr *utils.StatusError
					require.True(t, xerrors.As(err, &statusErr))
					assert.Equal(t, tt.wantStatusCode, statusErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestHTTPClient_FetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := utils.NewHTTPClient(0, nil)
	_, err := c.Fetch(ctx, "http://127.0.0.1:0/never")
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, context.Canceled))
}
