package export

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raine/stockmeta/internal/stock"
	"github.com/stretchr/testify/assert"
)

func TestCSV_DirSink(t *testing.T) {
	root := t.TempDir()
	images := []*stock.Image{{
		Name:     "a.jpg",
		MIMEType: "image/jpeg",
		Status:   stock.StatusComplete,
		Result:   &stock.Result{Title: "Apple", Keywords: []string{"apple"}},
	}}
	now := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	location, err := CSV(context.Background(), DirSink{Root: root}, stock.PlatformGeneral, images, now)

	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "general", "metadata-2026-06-30.csv"), location)
	data, err := os.ReadFile(location)
	assert.NoError(t, err)
	assert.Equal(t, stock.FormatCSV(stock.PlatformGeneral, images), string(data))
}

func TestS3Sink_Put(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sink, err := NewS3Sink(S3Config{
		Endpoint:  strings.TrimPrefix(ts.URL, "http://"),
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "exports",
		Region:    "us-east-1",
	})
	assert.NoError(t, err)

	location, err := sink.Put(context.Background(), "shutterstock/shutterstock-2026-06-30.csv", []byte("Filename"))

	assert.NoError(t, err)
	assert.Equal(t, "s3://exports/shutterstock/shutterstock-2026-06-30.csv", location)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/exports/shutterstock/shutterstock-2026-06-30.csv", gotPath)
	assert.Contains(t, gotBody, "Filename")
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
