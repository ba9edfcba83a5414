package export

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/tfrecord-viewer/pkg/record"
)

func example(filename, label string, data []byte) record.Features {
	return record.Features{
		"image/encoded":    record.BytesFeature(data),
		"image/filename":   record.StringFeature(filename),
		"image/class/text": record.StringFeature(label),
	}
}

func writeRecordFile(t *testing.T, dir, name string, examples ...record.Features) string {
	t.Helper()
	var buf bytes.Buffer
	w := record.NewWriter(&buf)
	for _, ex := range examples {
		require.NoError(t, w.WriteExample(ex))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func newExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "images")
	opts := DefaultOptions()
	opts.OutputPath = out
	opts.Verbose = true
	opts.Logger = log.New(io.Discard, "", 0)
	return New(opts), out
}

func TestRunWritesClassFolders(t *testing.T) {
	path := writeRecordFile(t, t.TempDir(), "train.tfrecord",
		example("001.jpg", "cat", []byte("cat-1")),
		example("002.jpg", "dog", []byte("dog-2")),
		example("003.jpg", "cat", []byte("cat-3")),
	)
	e, out := newExporter(t)

	stats, err := e.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, Stats{Records: 3, Written: 3, Bytes: 15}, stats)

	for name, want := range map[string]string{
		"cat/001.jpg": "cat-1",
		"dog/002.jpg": "dog-2",
		"cat/003.jpg": "cat-3",
	} {
		got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(name)))
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestRunOverwrites(t *testing.T) {
	dir := t.TempDir()
	a := writeRecordFile(t, dir, "a.tfrecord", example("001.jpg", "cat", []byte("first")))
	b := writeRecordFile(t, dir, "b.tfrecord", example("001.jpg", "cat", []byte("second")))
	e, out := newExporter(t)

	stats, err := e.Run(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 1, stats.Overwritten)

	got, err := os.ReadFile(filepath.Join(out, "cat", "001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestRunSkipsIncompleteRecords(t *testing.T) {
	noLabel := record.Features{
		"image/encoded":  record.BytesFeature([]byte("x")),
		"image/filename": record.StringFeature("x.jpg"),
	}
	path := writeRecordFile(t, t.TempDir(), "a.tfrecord",
		noLabel,
		example("ok.jpg", "bird", []byte("ok")),
	)
	e, out := newExporter(t)

	stats, err := e.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Written)
	assert.FileExists(t, filepath.Join(out, "bird", "ok.jpg"))
}

func TestRunSanitizesPaths(t *testing.T) {
	path := writeRecordFile(t, t.TempDir(), "a.tfrecord",
		example("../../escape.jpg", "../up", []byte("x")),
	)
	e, out := newExporter(t)

	_, err := e.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "_up", "_.._escape.jpg"))
}

func TestRunMissingFile(t *testing.T) {
	dir := t.TempDir()
	good := writeRecordFile(t, dir, "a.tfrecord", example("1.jpg", "cat", []byte("1")))
	e, _ := newExporter(t)

	stats, err := e.Run(context.Background(), []string{filepath.Join(dir, "missing.tfrecord"), good})
	assert.Error(t, err)
	assert.Equal(t, 1, stats.Written)
}
