package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg      string
		category string
	}{
		{"ERROR: Unable to download: Connection reset by peer", "Network Error"},
		{"Read timeout while fetching", "Network Error"},
		{"ERROR: [Instagram] Stories require login", "Instagram Story Restriction"},
		{"login required: this instagram stories reel is private", "Instagram Story Restriction"},
		{"ERROR: [instagram] post: login required", "Authentication Required"},
		{"This video is private", "Authentication Required"},
		{"Requested format is not available", "Format Error"},
		{"ffmpeg not found; postprocessing failed", "FFmpeg Error"},
		{"[Instagram] something odd happened", "Instagram Restriction"},
		{"ERROR: [youtube] Sign in to confirm your age", "YouTube Restriction"},
		{"Unsupported URL: https://example.com", CategoryURL},
		{"'x' is not a valid URL", CategoryURL},
		{"Permission denied: '/out'", "Permission Error"},
		{"yt-dlp: error: no such option / unknown option --foo", "Configuration Error"},
		{"This live stream has not started", "Live Stream Error"},
		{"HTTP Error 429: Too Many Requests", "Rate Limit Error"},
		{"Video unavailable or deleted", "Content Error"},
		{"There are no subtitles for the requested languages", "Subtitle Error"},
		{"OSError: [Errno 28] No space left on device", "Disk Space Error"},
		{"SSL: CERTIFICATE_VERIFY_FAILED", "SSL Error"},
		{"Proxy refused", "Proxy Error"},
		{"Filename too long", "Filename Error"},
		{"Invalid playlist index 40", "Playlist Error"},
		{"File is larger than max-filesize (2000 bytes > 100 bytes)", "File Size Error"},
		{"something else entirely", CategoryUnknown},
		{"", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			category, remedy := Classify(tt.msg)
			assert.Equal(t, tt.category, category)
			assert.NotEmpty(t, remedy)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// network keywords outrank everything below them
	category, _ := Classify("connection refused: login page unreachable")
	assert.Equal(t, "Network Error", category)

	// instagram stories beats the generic authentication rule
	category, remedy := Classify("LOGIN required to view Instagram STORIES")
	assert.Equal(t, "Instagram Story Restriction", category)
	assert.Equal(t, "Instagram stories often require login. Try a public post or reel.", remedy)

	// stories without an auth keyword falls through to the plain instagram rule
	category, _ = Classify("instagram stories extractor broke")
	assert.Equal(t, "Instagram Restriction", category)
}

func TestClassifyDeterministic(t *testing.T) {
	msg := "HTTP Error 429: Too Many Requests"
	c1, r1 := Classify(msg)
	c2, r2 := Classify(msg)
	assert.Equal(t, c1, c2)
	assert.Equal(t, r1, r2)
}

func TestUnknownFallback(t *testing.T) {
	category, remedy := Classify("¯\\_(ツ)_/¯")
	assert.Equal(t, CategoryUnknown, category)
	assert.Equal(t, RemedyUnknown, remedy)
}
