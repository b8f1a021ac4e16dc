package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLookPath(t *testing.T, found map[string]string) *int {
	t.Helper()
	calls := 0
	orig := lookPath
	lookPath = func(file string) (string, error) {
		calls++
		if p, ok := found[file]; ok {
			return p, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
	t.Cleanup(func() { lookPath = orig })
	return &calls
}

func TestCheckExtractor(t *testing.T) {
	stubLookPath(t, map[string]string{"yt-dlp": "/usr/bin/yt-dlp"})

	p, err := CheckExtractor("yt-dlp")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/yt-dlp", p)

	_, err = CheckExtractor("missing-dlp")
	assert.ErrorIs(t, err, ErrExtractorMissing)
}

func TestDetectorCachesResult(t *testing.T) {
	calls := stubLookPath(t, map[string]string{"ffmpeg": "/usr/bin/ffmpeg"})

	d := NewDetector("")
	assert.True(t, d.Available())
	assert.True(t, d.Available())
	assert.Equal(t, "/usr/bin/ffmpeg", d.Path())
	assert.Equal(t, 1, *calls)
}

func TestDetectorMissing(t *testing.T) {
	stubLookPath(t, nil)
	d := NewDetector("ffmpeg")
	assert.False(t, d.Available())
	assert.Empty(t, d.Path())
}

func TestReport(t *testing.T) {
	stubLookPath(t, map[string]string{"yt-dlp": "/bin/yt-dlp"})

	deps := Report("yt-dlp", NewDetector("ffmpeg"))
	require.Len(t, deps, 2)
	assert.True(t, deps[0].Required)
	assert.True(t, deps[0].Available)
	assert.False(t, deps[1].Required)
	assert.False(t, deps[1].Available)
	assert.NotEmpty(t, deps[1].Note)
}
