package repo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewParsesAddressWithDefaultScheme(t *testing.T) {
	c, err := New("dataverse.example.org", "token")
	require.NoError(t, err)
	require.Equal(t, "https", c.BaseURL().Scheme)
	require.Equal(t, "dataverse.example.org", c.BaseURL().Host)
}

func TestFetchInventory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get(HeaderAPIKey))
		w.Write([]byte(`{"data":{"latestVersion":{"files":[
			{"directoryLabel":"","label":"a.csv","dataFile":{"id":1,"filesize":10,"checksum":{"type":"MD5","value":"abc"}}}
		]}}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)

	files, err := c.FetchInventory(context.Background(), "doi:10/ABC")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "a.csv", files[0].Label)
	require.Equal(t, int64(10), files[0].DataFile.Filesize)
}

func TestProbeDirectUploadNotFoundMeansUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)

	ok, err := c.ProbeDirectUpload(context.Background(), "doi:10/ABC")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProbeDirectUploadSupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)

	ok, err := c.ProbeDirectUpload(context.Background(), "doi:10/ABC")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestProbeDirectUploadInconclusive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "secret")
	require.NoError(t, err)

	_, err = c.ProbeDirectUpload(context.Background(), "doi:10/ABC")
	require.Error(t, err)
}

func TestResolveJoinsPathAndQuery(t *testing.T) {
	c, err := New("http://example.org/base", "secret")
	require.NoError(t, err)

	u := c.Resolve("/api/x", url.Values{"a": {"1"}})
	require.Equal(t, "/api/x", u.Path)
	require.Equal(t, "a=1", u.RawQuery)
}
