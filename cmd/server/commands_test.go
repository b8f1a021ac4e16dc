package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdlpanel/internal/batch"
	"ytdlpanel/internal/models"
)

func TestBatchFlagsOptions(t *testing.T) {
	f := batchFlags{
		mode:     "audio_only",
		quality:  "720p",
		codec:    "opus",
		subs:     true,
		maxSize:  "1GB",
		playlist: "2:4",
	}
	opts, err := f.options()
	require.NoError(t, err)
	assert.Equal(t, models.MediaAudioOnly, opts.MediaMode)
	assert.Equal(t, models.CodecOpus, opts.AudioCodec)
	assert.True(t, opts.WantSubtitles)
	require.NotNil(t, opts.MaxFileSizeBytes)
	assert.Equal(t, uint64(1_000_000_000), *opts.MaxFileSizeBytes)
	assert.Equal(t, &models.PlaylistRange{Start: 2, End: 4}, opts.PlaylistRange)

	_, err = batchFlags{maxSize: "lots"}.options()
	assert.ErrorIs(t, err, models.ErrInvalidOption)
}

func TestBatchCommandRequiresURL(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"batch"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	t.Chdir(t.TempDir())
	assert.Error(t, cmd.Execute())
}

func TestTerminalSink(t *testing.T) {
	var buf bytes.Buffer
	s := newTerminalSink(&buf)

	s.ItemCompleted(models.DownloadResult{Status: models.StatusSuccess, Title: "clip", Files: []models.FileRecord{{}}})
	s.ItemCompleted(models.DownloadResult{Status: models.StatusError, SourceURL: "https://valid.example/b", ErrorCategory: "Content Error", Remedy: "The video is unavailable or deleted."})
	s.Progress(2, 3)
	s.BatchFinished(batch.Snapshot{
		SuccessCount: 1,
		FailCount:    1,
		Files:        []models.FileRecord{{AbsolutePath: "/tmp/ytdlp_batch_1/task_0/clip.mp4", SizeBytes: 10 << 20}},
	})

	out := buf.String()
	assert.Contains(t, out, "ok       clip")
	assert.Contains(t, out, "Content Error")
	assert.Contains(t, out, "Progress: 2/3")
	assert.Contains(t, out, "Succeeded: 1  Failed: 1  Timed out: 0")
	assert.NotContains(t, out, "Skipped")
	assert.Contains(t, out, "10 MiB")
}
