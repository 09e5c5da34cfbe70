package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{name: "plain", input: "Helene_Schjerfbeck", maxLength: 30, want: "Helene_Schjerfbeck"},
		{name: "strips slashes", input: "a/b\\c", maxLength: 30, want: "abc"},
		{name: "keeps allowed punctuation", input: "self portrait. 1912-13", maxLength: 30, want: "self portrait. 1912-13"},
		{name: "truncates", input: "abcdefghij", maxLength: 5, want: "abcde"},
		{name: "trims spaces", input: "  x  ", maxLength: 30, want: "x"},
		{name: "empty", input: "???", maxLength: 30, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFilename(tt.input, tt.maxLength))
		})
	}
}

func TestObjectFilename(t *testing.T) {
	obj := Object{
		ObjectID: "12345",
		People:   []Person{{FirstName: "Helene", FamilyName: "Schjerfbeck"}},
	}
	assert.Equal(t, "Helene_Schjerfbeck_12345.jpg", obj.Filename())

	anonymous := Object{ObjectID: "99"}
	assert.Equal(t, "Unknown_99.jpg", anonymous.Filename())
}

func TestObjectImageURL(t *testing.T) {
	obj := Object{
		Multimedia: []Multimedia{
			{JPG: map[string]string{"500": "http://example/500.jpg", "1000": "http://example/1000.jpg"}},
		},
	}

	assert.Equal(t, "http://example/500.jpg", obj.ImageURL("500"))
	assert.Equal(t, "", obj.ImageURL("2000"))

	var empty Object
	assert.Equal(t, "", empty.ImageURL("500"))
}

// writeMetadata builds an objects.json with n objects pointing at baseURL.
func writeMetadata(t *testing.T, dir, baseURL string, n int) string {
	t.Helper()

	objects := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		objects = append(objects, map[string]any{
			"objectId": i + 1,
			"people":   []map[string]string{{"firstName": "Artist", "familyName": "Name"}},
			"multimedia": []map[string]any{
				{"jpg": map[string]string{"500": baseURL + "/img" + string(rune('a'+i)) + ".jpg"}},
			},
		})
	}

	data, err := json.Marshal(objects)
	require.NoError(t, err)

	path := filepath.Join(dir, "objects.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunDownloadsImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpegdata:" + r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	metadata := writeMetadata(t, dir, server.URL, 3)
	outputDir := filepath.Join(dir, "images")

	report, err := Run(context.Background(), metadata, outputDir, func(o *Options) {
		o.RatePerSecond = 0 // unlimited in tests
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Downloaded)
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, 0, report.Skipped)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRunSkipsExisting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpegdata"))
	}))
	defer server.Close()

	dir := t.TempDir()
	metadata := writeMetadata(t, dir, server.URL, 2)
	outputDir := filepath.Join(dir, "images")

	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "Artist_Name_1.jpg"), []byte("old"), 0o644))

	report, err := Run(context.Background(), metadata, outputDir, func(o *Options) {
		o.RatePerSecond = 0
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Downloaded)
	assert.Equal(t, 1, report.Skipped)

	// The existing file is untouched.
	old, err := os.ReadFile(filepath.Join(outputDir, "Artist_Name_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestRunCollectsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/imga.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpegdata"))
	}))
	defer server.Close()

	dir := t.TempDir()
	metadata := writeMetadata(t, dir, server.URL, 2)

	report, err := Run(context.Background(), metadata, filepath.Join(dir, "images"), func(o *Options) {
		o.RatePerSecond = 0
		o.Concurrency = 1
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Downloaded)
	require.Equal(t, 1, report.Failed())
	assert.Equal(t, "Artist_Name_1.jpg", report.Failures[0].Filename)

	// The failed download must not leave a file behind.
	_, statErr := os.Stat(filepath.Join(dir, "images", "Artist_Name_1.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunHonorsMax(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpegdata"))
	}))
	defer server.Close()

	dir := t.TempDir()
	metadata := writeMetadata(t, dir, server.URL, 5)

	report, err := Run(context.Background(), metadata, filepath.Join(dir, "images"), func(o *Options) {
		o.RatePerSecond = 0
		o.Max = 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Downloaded)
}

func TestRunBadMetadata(t *testing.T) {
	dir := t.TempDir()

	_, err := Run(context.Background(), filepath.Join(dir, "missing.json"), dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Run(context.Background(), bad, dir)
	assert.Error(t, err)
}
