package fileserve

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdlpanel/internal/models"
)

type spyOpener struct {
	calls   int
	content string
}

func (s *spyOpener) open(path string) (io.ReadCloser, error) {
	s.calls++
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func TestDecide(t *testing.T) {
	const threshold = 100
	assert.Equal(t, Inline, Decide(0, threshold))
	assert.Equal(t, Inline, Decide(threshold-1, threshold))
	assert.Equal(t, Inline, Decide(threshold, threshold))
	assert.Equal(t, Oversized, Decide(threshold+1, threshold))
}

func TestNewDefaults(t *testing.T) {
	s := New(0, nil)
	assert.Equal(t, DefaultThreshold, s.Threshold())
}

func TestLoad_OversizedNeverOpens(t *testing.T) {
	spy := &spyOpener{content: "x"}
	s := New(10, spy.open)

	_, err := s.Load(models.FileRecord{Filename: "big.mp4", AbsolutePath: "/nope/big.mp4", SizeBytes: 11})
	assert.ErrorIs(t, err, ErrOversized)
	assert.Equal(t, 0, spy.calls)
}

func TestLoad_ExactThreshold(t *testing.T) {
	spy := &spyOpener{content: "0123456789"}
	s := New(10, spy.open)

	data, err := s.Load(models.FileRecord{Filename: "a.bin", SizeBytes: 10})
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
	assert.Equal(t, 1, spy.calls)
}

func TestLoad_UnderDeclaredSize(t *testing.T) {
	spy := &spyOpener{content: strings.Repeat("z", 50)}
	s := New(10, spy.open)

	_, err := s.Load(models.FileRecord{Filename: "liar.bin", SizeBytes: 5})
	assert.ErrorIs(t, err, ErrOversized)
}

func TestServe_Inline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	s := New(1024, nil)
	rec := httptest.NewRecorder()
	s.Serve(rec, models.FileRecord{Filename: "a.mp4", AbsolutePath: path, SizeBytes: 5})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "a.mp4")
}

func TestServe_Oversized(t *testing.T) {
	spy := &spyOpener{}
	s := New(10, spy.open)
	rec := httptest.NewRecorder()
	s.Serve(rec, models.FileRecord{Filename: "big.mkv", AbsolutePath: "/tmp/ytdlp_batch_x/task_0/big.mkv", SizeBytes: 11})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, spy.calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "oversized", body["status"])
	assert.Equal(t, "/tmp/ytdlp_batch_x/task_0/big.mkv", body["path"])
}

func TestServe_MissingFile(t *testing.T) {
	s := New(1024, nil)
	rec := httptest.NewRecorder()
	s.Serve(rec, models.FileRecord{Filename: "gone.mp4", AbsolutePath: filepath.Join(t.TempDir(), "gone.mp4"), SizeBytes: 3})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
