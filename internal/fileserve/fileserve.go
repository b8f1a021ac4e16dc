// Package fileserve decides whether a downloaded file is small enough to be
// buffered into an HTTP response, and serves it when it is.
package fileserve

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"ytdlpanel/internal/models"
	"ytdlpanel/internal/utils"
)

// DefaultThreshold is the largest file that may be buffered inline.
const DefaultThreshold uint64 = 100 * 1024 * 1024

var ErrOversized = errors.New("file exceeds inline threshold")

type Decision int

const (
	Inline Decision = iota
	Oversized
)

func (d Decision) String() string {
	if d == Inline {
		return "inline"
	}
	return "oversized"
}

// Decide returns Inline when size <= threshold. A file of exactly the threshold is inline.
func Decide(size, threshold uint64) Decision {
	if size <= threshold {
		return Inline
	}
	return Oversized
}

// Opener is how file contents are obtained. It is never called for oversized files.
type Opener func(path string) (io.ReadCloser, error)

func OSOpener(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type Server struct {
	threshold uint64
	open      Opener
}

func New(threshold uint64, open Opener) *Server {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if open == nil {
		open = OSOpener
	}
	return &Server{threshold: threshold, open: open}
}

func (s *Server) Threshold() uint64 {
	return s.threshold
}

// Load buffers the whole file. It refuses oversized records without opening them and
// stops reading if the file on disk turns out larger than its declared size allows.
func (s *Server) Load(rec models.FileRecord) ([]byte, error) {
	if Decide(rec.SizeBytes, s.threshold) == Oversized {
		return nil, ErrOversized
	}
	f, err := s.open(rec.AbsolutePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(f, int64(s.threshold)+1))
	if err != nil {
		return nil, err
	}
	if uint64(n) > s.threshold {
		return nil, ErrOversized
	}
	return buf.Bytes(), nil
}

type oversizedReply struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     uint64 `json:"sizeBytes"`
	Human    string `json:"size"`
}

// Serve writes rec as an attachment, or a JSON body pointing at its on-disk path when it
// is too large to buffer.
func (s *Server) Serve(w http.ResponseWriter, rec models.FileRecord) {
	data, err := s.Load(rec)
	if errors.Is(err, ErrOversized) {
		slog.Info("File too large to serve inline", "file", rec.Filename, "size", rec.SizeBytes, "threshold", s.threshold)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(oversizedReply{
			Status:   Oversized.String(),
			Filename: rec.Filename,
			Path:     rec.AbsolutePath,
			Size:     rec.SizeBytes,
			Human:    utils.FormatSize(rec.SizeBytes),
		})
		return
	}
	if err != nil {
		slog.Error("Failed to read file", "path", rec.AbsolutePath, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to read file"})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(rec.Filename)))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}
