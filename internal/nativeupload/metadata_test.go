package nativeupload

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gdcc/dvuploader-go/filedesc"
)

func TestUpdateMetadataByIDPostsToKnownFileID(t *testing.T) {
	var gotPath string
	d, _ := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	defer d.Close()

	desc := &filedesc.Descriptor{DisplayName: "a.csv", FileID: "777", ToReplace: true, UnchangedData: true}

	require.NoError(t, d.UpdateMetadataByID(context.Background(), desc))
	require.Equal(t, "/api/files/777/metadata", gotPath)
}
