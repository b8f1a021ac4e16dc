package platform

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

var ErrExtractorMissing = errors.New("yt-dlp not found in PATH")

const InstallRemedy = `yt-dlp is required but not installed.
Install it using:
  pip install yt-dlp
or download a release binary from https://github.com/yt-dlp/yt-dlp/releases
Then restart the panel.`

var lookPath = exec.LookPath

// CheckExtractor resolves the extraction binary. Its absence is the only fatal startup condition.
func CheckExtractor(binary string) (string, error) {
	path, err := lookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%w (%s): %v", ErrExtractorMissing, binary, err)
	}
	return path, nil
}

// Detector caches the presence check of the optional transcoding binary.
type Detector struct {
	binary string
	once   sync.Once
	path   string
}

func NewDetector(binary string) *Detector {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Detector{binary: binary}
}

func (d *Detector) Available() bool {
	d.once.Do(func() {
		if p, err := lookPath(d.binary); err == nil {
			d.path = p
		}
	})
	return d.path != ""
}

func (d *Detector) Path() string {
	d.Available()
	return d.path
}

type Dependency struct {
	Name      string `json:"name"`
	Required  bool   `json:"required"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Note      string `json:"note,omitempty"`
}

// Report lists the collaborators and whether each one was found.
func Report(extractor string, ffmpeg *Detector) []Dependency {
	deps := make([]Dependency, 0, 2)

	d := Dependency{Name: extractor, Required: true}
	if p, err := lookPath(extractor); err == nil {
		d.Available, d.Path = true, p
	} else {
		d.Note = "downloads are impossible without it"
	}
	deps = append(deps, d)

	f := Dependency{Name: ffmpeg.binary, Available: ffmpeg.Available(), Path: ffmpeg.Path()}
	if !f.Available {
		f.Note = "metadata embedding, audio conversion, subtitles and thumbnails are disabled"
	}
	return append(deps, f)
}
