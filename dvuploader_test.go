package dvuploader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdcc/dvuploader-go/filedesc"
	"github.com/gdcc/dvuploader-go/internal/config"
)

func TestUploadNativePathRegistersThenReconciles(t *testing.T) {
	var inventoryCalls int32
	var nativePosted, metadataPosted bool

	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets/:persistentId/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&inventoryCalls, 1) == 1 {
			w.Write([]byte(`{"data":{"latestVersion":{"files":[]}}}`))
			return
		}
		w.Write([]byte(`{"data":{"latestVersion":{"files":[
			{"directoryLabel":"","label":"a.csv","dataFile":{"id":1}}
		]}}}`))
	})
	mux.HandleFunc("/api/datasets/:persistentId/uploadurls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/datasets/:persistentId/add", func(w http.ResponseWriter, r *http.Request) {
		nativePosted = true
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/files/1/metadata", func(w http.ResponseWriter, r *http.Request) {
		metadataPosted = true
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := New(srv.URL, "secret", "doi:10/ABC")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n"), 0o644))
	d := filedesc.New(path)

	cfg := config.New(config.WithConcurrency(1))
	result, err := u.Upload(context.Background(), []*filedesc.Descriptor{d}, WithConfig(cfg))
	require.NoError(t, err)
	require.True(t, nativePosted)
	require.True(t, metadataPosted)
	require.Empty(t, result.Failed())
}

func TestUploadNativePathRoutesReplaceToReplaceEndpointNotAdd(t *testing.T) {
	var inventoryCalls int32
	var addPosted, replacePosted, metadataPosted bool

	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets/:persistentId/", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&inventoryCalls, 1) == 1 {
			w.Write([]byte(`{"data":{"latestVersion":{"files":[
				{"directoryLabel":"","label":"existing.csv","dataFile":{"id":7,"filesize":999,"checksum":{"type":"MD5","value":"deadbeef"}}}
			]}}}`))
			return
		}
		w.Write([]byte(`{"data":{"latestVersion":{"files":[
			{"directoryLabel":"","label":"existing.csv","dataFile":{"id":7,"filesize":999,"checksum":{"type":"MD5","value":"deadbeef"}}},
			{"directoryLabel":"","label":"new.csv","dataFile":{"id":2}}
		]}}}`))
	})
	mux.HandleFunc("/api/datasets/:persistentId/uploadurls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/api/datasets/:persistentId/add", func(w http.ResponseWriter, r *http.Request) {
		addPosted = true
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/files/7/replace", func(w http.ResponseWriter, r *http.Request) {
		replacePosted = true
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/files/2/metadata", func(w http.ResponseWriter, r *http.Request) {
		metadataPosted = true
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := New(srv.URL, "secret", "doi:10/ABC")
	require.NoError(t, err)

	dir := t.TempDir()
	newPath := filepath.Join(dir, "new.csv")
	require.NoError(t, os.WriteFile(newPath, []byte("p,q\n"), 0o644))
	replacedPath := filepath.Join(dir, "existing.csv")
	require.NoError(t, os.WriteFile(replacedPath, []byte("abcd"), 0o644))

	descriptors := []*filedesc.Descriptor{filedesc.New(newPath), filedesc.New(replacedPath)}

	cfg := config.New(config.WithConcurrency(1))
	result, err := u.Upload(context.Background(), descriptors, WithConfig(cfg), WithReplaceExisting())
	require.NoError(t, err)
	require.Empty(t, result.Failed())
	require.True(t, addPosted, "new descriptor should have been posted to the add endpoint")
	require.True(t, replacePosted, "replace descriptor should have been posted to its own file's replace endpoint, not zipped into the add package")
	require.True(t, metadataPosted)
}

func TestUploadSkipsExistingWithoutReplaceExisting(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets/:persistentId/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"latestVersion":{"files":[
			{"directoryLabel":"","label":"existing.csv","dataFile":{"id":1,"filesize":4}}
		]}}}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := New(srv.URL, "secret", "doi:10/ABC")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "existing.csv")
	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o644))
	d := filedesc.New(path)

	result, err := u.Upload(context.Background(), []*filedesc.Descriptor{d})
	require.NoError(t, err)
	require.Equal(t, []string{"existing.csv"}, result.Skipped)
	require.Empty(t, result.Outcomes)
}
