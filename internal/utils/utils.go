package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
)

const (
	MsgEmptyURL     = "URL cannot be empty"
	MsgInvalidURL   = "Invalid URL format"
	MsgMissingParts = "Invalid URL format. Please include http:// or https://"
	MsgValidURL     = "URL format is valid"

	urlSummaryLen = 50
	titleLen      = 50
	ellipsis      = "..."
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// ValidateURL reports whether s is an absolute URL with both a scheme and a host.
// It never touches the network.
func ValidateURL(s string) (bool, string) {
	if s == "" {
		return false, MsgEmptyURL
	}
	u, err := url.Parse(s)
	if err != nil {
		return false, MsgInvalidURL
	}
	if u.Scheme == "" || u.Host == "" {
		return false, MsgMissingParts
	}
	return true, MsgValidURL
}

// SummarizeURL shortens a URL for history display.
func SummarizeURL(s string) string {
	if len(s) > urlSummaryLen {
		return s[:urlSummaryLen] + ellipsis
	}
	return s
}

// TruncateTitle bounds a title to 50 bytes, ellipsis included.
func TruncateTitle(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= titleLen {
		return s
	}
	cut := titleLen - len(ellipsis)
	for cut > 0 && !utf8Boundary(s, cut) {
		cut--
	}
	return s[:cut] + ellipsis
}

func utf8Boundary(s string, i int) bool {
	return i >= len(s) || s[i]&0xC0 != 0x80
}

// SplitURLs turns a pasted block of text into one URL per non-blank line.
func SplitURLs(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func FormatSize(n uint64) string {
	return humanize.IBytes(n)
}

type Preview struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Site      string `json:"site"`
	Thumbnail string `json:"thumbnail"`
}

// FetchPreview reads the page behind pageURL and pulls out the OpenGraph title, site name
// and thumbnail, falling back to <title> and the host name.
func FetchPreview(ctx context.Context, client *http.Client, pageURL string) (Preview, error) {
	if ok, msg := ValidateURL(pageURL); !ok {
		return Preview{}, errors.New(msg)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	slog.Debug("Fetching preview", "url", pageURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Preview{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := client.Do(req)
	if err != nil {
		return Preview{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Preview{}, fmt.Errorf("preview fetch: server returned %s", res.Status)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return Preview{}, fmt.Errorf("preview parse: %w", err)
	}

	p := Preview{URL: pageURL}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		if prop == "" {
			prop, _ = s.Attr("name")
		}
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		switch prop {
		case "og:title":
			p.Title = strings.TrimSpace(content)
		case "og:site_name":
			p.Site = strings.TrimSpace(content)
		case "og:image":
			p.Thumbnail = strings.TrimSpace(content)
		}
	})

	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if p.Title == "" {
		p.Title = "Unknown"
	}
	if p.Site == "" {
		if u, err := url.Parse(pageURL); err == nil {
			p.Site = u.Hostname()
		}
	}
	return p, nil
}
