package download

import (
	"context"
	"fmt"
	"path/filepath"

	"ytdlpanel/internal/models"
)

const (
	OutputTemplate = "%(title).100s-%(id)s.%(ext)s"
	SubtitleLang   = "en"
)

// ExtractRequest is the collaborator-level translation of one URL plus its OptionSet.
type ExtractRequest struct {
	URL            string
	Format         string
	Output         string
	ExtractAudio   bool
	AudioCodec     string
	EmbedMetadata  bool
	WriteSubs      bool
	SubLangs       string
	WriteThumbnail bool
	MaxFileSize    *uint64
	PlaylistItems  string
}

type ExtractInfo struct {
	Title string
}

// ProgressFunc receives byte progress for the running item. Index is filled by the caller.
type ProgressFunc func(models.TransferProgress)

type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest, onProgress ProgressFunc) (ExtractInfo, error)
}

// FormatSelector maps a media mode and quality cap to one of the fixed selector templates.
func FormatSelector(mode models.MediaMode, quality models.Quality) string {
	h := quality.Height()
	switch mode {
	case models.MediaAudioOnly:
		return "bestaudio/best"
	case models.MediaVideoOnly:
		if h == 0 {
			return "bestvideo"
		}
		return fmt.Sprintf("bestvideo[height<=%d]", h)
	default:
		if h == 0 {
			return "bestvideo+bestaudio/best"
		}
		return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", h, h)
	}
}

// BuildRequest translates opts for url writing into dir. Post-processing that needs
// ffmpeg is attached only when haveFFmpeg is set and is silently dropped otherwise.
func BuildRequest(url string, opts models.OptionSet, dir string, haveFFmpeg bool) ExtractRequest {
	req := ExtractRequest{
		URL:         url,
		Format:      FormatSelector(opts.MediaMode, opts.QualityCap),
		Output:      filepath.Join(dir, OutputTemplate),
		MaxFileSize: opts.MaxFileSizeBytes,
	}

	if haveFFmpeg {
		if opts.MediaMode == models.MediaAudioOnly {
			req.ExtractAudio = true
			req.AudioCodec = string(opts.AudioCodec)
		}
		req.EmbedMetadata = opts.EmbedMetadata
		if opts.WantSubtitles {
			req.WriteSubs = true
			req.SubLangs = SubtitleLang
		}
		req.WriteThumbnail = opts.WantThumbnail
	}

	if r := opts.PlaylistRange; r != nil {
		if r.End > 0 {
			req.PlaylistItems = fmt.Sprintf("%d:%d", r.Start, r.End)
		} else if r.Start > 1 {
			req.PlaylistItems = fmt.Sprintf("%d:", r.Start)
		}
	}
	return req
}
