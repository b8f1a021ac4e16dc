package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidOption = errors.New("invalid option")

type MediaMode string

const (
	MediaAudioVideo MediaMode = "audio_video"
	MediaAudioOnly  MediaMode = "audio_only"
	MediaVideoOnly  MediaMode = "video_only"
)

type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	Quality480p  Quality = "480p"
	Quality360p  Quality = "360p"
)

// Height returns the vertical resolution cap, 0 for best.
func (q Quality) Height() int {
	switch q {
	case Quality1080p:
		return 1080
	case Quality720p:
		return 720
	case Quality480p:
		return 480
	case Quality360p:
		return 360
	default:
		return 0
	}
}

type AudioCodec string

const (
	CodecMP3  AudioCodec = "mp3"
	CodecAAC  AudioCodec = "aac"
	CodecM4A  AudioCodec = "m4a"
	CodecOpus AudioCodec = "opus"
	CodecFLAC AudioCodec = "flac"
)

type PlaylistRange struct {
	Start uint `json:"start"`
	End   uint `json:"end"` // 0 means through the last entry
}

// OptionSet is shared read-only by every item of a batch.
type OptionSet struct {
	MediaMode        MediaMode      `json:"mediaMode"`
	QualityCap       Quality        `json:"qualityCap"`
	AudioCodec       AudioCodec     `json:"audioCodec"`
	WantSubtitles    bool           `json:"wantSubtitles"`
	WantThumbnail    bool           `json:"wantThumbnail"`
	EmbedMetadata    bool           `json:"embedMetadata"`
	MaxFileSizeBytes *uint64        `json:"maxFileSizeBytes,omitempty"`
	PlaylistRange    *PlaylistRange `json:"playlistRange,omitempty"`
}

func DefaultOptions() OptionSet {
	return OptionSet{
		MediaMode:  MediaAudioVideo,
		QualityCap: QualityBest,
		AudioCodec: CodecMP3,
	}
}

// Normalize fills empty fields with defaults and rejects unknown enum values.
// Audio-only batches ignore the quality cap.
func (o OptionSet) Normalize() (OptionSet, error) {
	if o.MediaMode == "" {
		o.MediaMode = MediaAudioVideo
	}
	if o.QualityCap == "" {
		o.QualityCap = QualityBest
	}
	if o.AudioCodec == "" {
		o.AudioCodec = CodecMP3
	}

	switch o.MediaMode {
	case MediaAudioVideo, MediaAudioOnly, MediaVideoOnly:
	default:
		return o, fmt.Errorf("%w: media mode %q", ErrInvalidOption, o.MediaMode)
	}
	switch o.QualityCap {
	case QualityBest, Quality1080p, Quality720p, Quality480p, Quality360p:
	default:
		return o, fmt.Errorf("%w: quality %q", ErrInvalidOption, o.QualityCap)
	}
	switch o.AudioCodec {
	case CodecMP3, CodecAAC, CodecM4A, CodecOpus, CodecFLAC:
	default:
		return o, fmt.Errorf("%w: audio codec %q", ErrInvalidOption, o.AudioCodec)
	}

	if o.MediaMode == MediaAudioOnly {
		o.QualityCap = QualityBest
	}
	if o.MaxFileSizeBytes != nil && *o.MaxFileSizeBytes == 0 {
		o.MaxFileSizeBytes = nil
	}
	if r := o.PlaylistRange; r != nil {
		if r.Start == 0 {
			return o, fmt.Errorf("%w: playlist start must be at least 1", ErrInvalidOption)
		}
		if r.End != 0 && r.End < r.Start {
			return o, fmt.Errorf("%w: playlist end %d before start %d", ErrInvalidOption, r.End, r.Start)
		}
	}
	return o, nil
}

var sizePresets = map[string]uint64{
	"100MB": 100 * 1000 * 1000,
	"500MB": 500 * 1000 * 1000,
	"1GB":   1000 * 1000 * 1000,
	"2GB":   2000 * 1000 * 1000,
}

// ParseMaxSize accepts "No Limit", a named preset (100MB, 500MB, 1GB, 2GB) or a raw byte count.
func ParseMaxSize(s string) (*uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "No Limit") || s == "0" {
		return nil, nil
	}
	if v, ok := sizePresets[strings.ToUpper(s)]; ok {
		return &v, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: max size %q", ErrInvalidOption, s)
	}
	return &v, nil
}

// ParsePlaylistRange parses "start" or "start:end".
func ParsePlaylistRange(s string) (*PlaylistRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	startStr, endStr, _ := strings.Cut(s, ":")
	start, err := strconv.ParseUint(startStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: playlist range %q", ErrInvalidOption, s)
	}
	var end uint64
	if endStr != "" {
		if end, err = strconv.ParseUint(endStr, 10, 32); err != nil {
			return nil, fmt.Errorf("%w: playlist range %q", ErrInvalidOption, s)
		}
	}
	return &PlaylistRange{Start: uint(start), End: uint(end)}, nil
}

type DownloadRequest struct {
	Index   int        `json:"index"`
	URL     string     `json:"url"`
	Options *OptionSet `json:"-"`
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
	StatusSkipped Status = "skipped"
)

type FileRecord struct {
	Filename     string `json:"filename"`
	AbsolutePath string `json:"absolutePath"`
	SizeBytes    uint64 `json:"sizeBytes"`
}

type DownloadResult struct {
	Index         int          `json:"index"`
	SourceURL     string       `json:"sourceUrl"`
	Title         string       `json:"title"`
	Status        Status       `json:"status"`
	Files         []FileRecord `json:"files"`
	ErrorCategory string       `json:"errorCategory,omitempty"`
	ErrorDetail   string       `json:"errorDetail,omitempty"`
	Remedy        string       `json:"remedy,omitempty"`
	Duration      float64      `json:"durationSeconds"`
}

// TransferProgress is the typed byte-level progress of one running item.
// TotalBytes and ETASeconds are -1 when unknown.
type TransferProgress struct {
	Index           int   `json:"index"`
	BytesDownloaded int64 `json:"bytesDownloaded"`
	TotalBytes      int64 `json:"totalBytes"`
	ETASeconds      int   `json:"etaSeconds"`
}

type HistoryEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	URLSummary string    `json:"url"`
	Title      string    `json:"title"`
	FileCount  int       `json:"files"`
	Status     string    `json:"status"`
}
