package download

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytdlpanel/internal/models"
)

// flagValue returns the value given to flag in args, accepting "--flag value" and "--flag=value".
func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag {
			if i+1 < len(args) {
				return args[i+1], true
			}
			return "", true
		}
		if v, ok := strings.CutPrefix(a, flag+"="); ok {
			return v, true
		}
	}
	return "", false
}

func hasFlag(args []string, flag string) bool {
	_, ok := flagValue(args, flag)
	return ok
}

func TestYTDLPCommandArgs(t *testing.T) {
	const url = "https://valid.example/watch?v=abc"
	size := uint64(100_000_000)

	tests := []struct {
		name       string
		opts       models.OptionSet
		haveFFmpeg bool
		want       map[string]string
		present    []string
		absent     []string
	}{
		{
			name:       "defaults",
			opts:       models.DefaultOptions(),
			haveFFmpeg: true,
			want:       map[string]string{"--format": "bestvideo+bestaudio/best"},
			present:    []string{"--restrict-filenames"},
			absent:     []string{"--extract-audio", "--embed-metadata", "--write-subs", "--write-thumbnail", "--max-filesize", "--playlist-items"},
		},
		{
			name:       "quality cap",
			opts:       models.OptionSet{QualityCap: models.Quality720p},
			haveFFmpeg: true,
			want:       map[string]string{"--format": "bestvideo[height<=720]+bestaudio/best[height<=720]"},
		},
		{
			name:       "video only",
			opts:       models.OptionSet{MediaMode: models.MediaVideoOnly, QualityCap: models.Quality480p},
			haveFFmpeg: true,
			want:       map[string]string{"--format": "bestvideo[height<=480]"},
			absent:     []string{"--extract-audio"},
		},
		{
			name:       "audio only with ffmpeg",
			opts:       models.OptionSet{MediaMode: models.MediaAudioOnly, AudioCodec: models.CodecOpus},
			haveFFmpeg: true,
			want:       map[string]string{"--format": "bestaudio/best", "--audio-format": "opus"},
			present:    []string{"--extract-audio"},
		},
		{
			name:       "audio only without ffmpeg",
			opts:       models.OptionSet{MediaMode: models.MediaAudioOnly, AudioCodec: models.CodecOpus},
			haveFFmpeg: false,
			want:       map[string]string{"--format": "bestaudio/best"},
			absent:     []string{"--extract-audio", "--audio-format"},
		},
		{
			name:       "post processing with ffmpeg",
			opts:       models.OptionSet{EmbedMetadata: true, WantSubtitles: true, WantThumbnail: true},
			haveFFmpeg: true,
			want:       map[string]string{"--sub-langs": "en"},
			present:    []string{"--embed-metadata", "--write-subs", "--write-thumbnail"},
		},
		{
			name:       "post processing without ffmpeg",
			opts:       models.OptionSet{EmbedMetadata: true, WantSubtitles: true, WantThumbnail: true},
			haveFFmpeg: false,
			absent:     []string{"--embed-metadata", "--write-subs", "--sub-langs", "--write-thumbnail"},
		},
		{
			name:       "max size",
			opts:       models.OptionSet{MaxFileSizeBytes: &size},
			haveFFmpeg: true,
			want:       map[string]string{"--max-filesize": "100000000"},
		},
		{
			name:       "playlist range",
			opts:       models.OptionSet{PlaylistRange: &models.PlaylistRange{Start: 2, End: 5}},
			haveFFmpeg: true,
			want:       map[string]string{"--playlist-items": "2:5"},
		},
		{
			name:       "playlist open end",
			opts:       models.OptionSet{PlaylistRange: &models.PlaylistRange{Start: 3}},
			haveFFmpeg: true,
			want:       map[string]string{"--playlist-items": "3:"},
		},
	}

	y := NewYTDLP("yt-dlp", 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := tt.opts.Normalize()
			require.NoError(t, err)

			dir := t.TempDir()
			req := BuildRequest(url, opts, dir, tt.haveFFmpeg)
			args := y.command(req).BuildCommand(context.Background(), url).Args

			assert.Equal(t, url, args[len(args)-1])
			output, ok := flagValue(args, "--output")
			require.True(t, ok)
			assert.Equal(t, req.Output, output)
			assert.True(t, strings.HasSuffix(output, OutputTemplate))

			for flag, want := range tt.want {
				got, ok := flagValue(args, flag)
				if assert.True(t, ok, "missing %s in %v", flag, args) {
					assert.Equal(t, want, got, flag)
				}
			}
			for _, flag := range tt.present {
				assert.True(t, hasFlag(args, flag), "missing %s in %v", flag, args)
			}
			for _, flag := range tt.absent {
				assert.False(t, hasFlag(args, flag), "unexpected %s in %v", flag, args)
			}
		})
	}
}

func TestNewYTDLPDefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultProgressInterval, NewYTDLP("", 0).interval)
	assert.Equal(t, DefaultProgressInterval, NewYTDLP("", -1).interval)
}
