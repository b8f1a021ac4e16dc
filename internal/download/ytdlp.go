package download

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"ytdlpanel/internal/models"
)

const DefaultProgressInterval = 500 * time.Millisecond

// YTDLP drives the yt-dlp binary through go-ytdlp's structured progress hook.
type YTDLP struct {
	executable string
	interval   time.Duration
}

func NewYTDLP(executable string, interval time.Duration) *YTDLP {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &YTDLP{executable: executable, interval: interval}
}

func (y *YTDLP) command(req ExtractRequest) *ytdlp.Command {
	dl := ytdlp.New().
		RestrictFilenames().
		Format(req.Format).
		Output(req.Output)

	if y.executable != "" {
		dl.SetExecutable(y.executable)
	}
	if req.ExtractAudio {
		dl.ExtractAudio().AudioFormat(req.AudioCodec)
	}
	if req.EmbedMetadata {
		dl.EmbedMetadata()
	}
	if req.WriteSubs {
		dl.WriteSubs().SubLangs(req.SubLangs)
	}
	if req.WriteThumbnail {
		dl.WriteThumbnail()
	}
	if req.MaxFileSize != nil {
		dl.MaxFileSize(strconv.FormatUint(*req.MaxFileSize, 10))
	}
	if req.PlaylistItems != "" {
		dl.PlaylistItems(req.PlaylistItems)
	}
	return dl
}

func (y *YTDLP) Extract(ctx context.Context, req ExtractRequest, onProgress ProgressFunc) (ExtractInfo, error) {
	var (
		mu    sync.Mutex
		title string
	)

	dl := y.command(req)
	dl.ProgressFunc(y.interval, func(update ytdlp.ProgressUpdate) {
		mu.Lock()
		if title == "" && update.Info != nil && update.Info.Title != nil {
			title = *update.Info.Title
		}
		mu.Unlock()

		if onProgress == nil {
			return
		}
		p := models.TransferProgress{
			BytesDownloaded: int64(update.DownloadedBytes),
			TotalBytes:      -1,
			ETASeconds:      -1,
		}
		if update.TotalBytes > 0 {
			p.TotalBytes = int64(update.TotalBytes)
		}
		if eta := update.ETA(); eta > 0 {
			p.ETASeconds = int(eta.Seconds())
		}
		onProgress(p)
	})

	res, err := dl.Run(ctx, req.URL)

	mu.Lock()
	info := ExtractInfo{Title: title}
	mu.Unlock()

	if res != nil && info.Title == "" {
		if extracted, xerr := res.GetExtractedInfo(); xerr == nil {
			for _, e := range extracted {
				if e != nil && e.Title != nil && *e.Title != "" {
					info.Title = *e.Title
					break
				}
			}
		}
	}

	if err != nil {
		if res != nil && strings.TrimSpace(res.Stderr) != "" {
			return info, errors.New(strings.TrimSpace(res.Stderr))
		}
		return info, err
	}
	// yt-dlp skips oversized files with a zero exit status.
	if res != nil && strings.Contains(res.Stdout, "larger than max-filesize") {
		return info, errors.New("file is larger than max-filesize, skipping")
	}
	return info, nil
}
