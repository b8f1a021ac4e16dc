// Package classify maps raw extraction error text to a short category and a
// one-line remedy shown to the user.
package classify

import "strings"

const (
	CategoryURL       = "URL Error"
	CategoryTimeout   = "Timeout"
	CategoryCancelled = "Cancelled"
	CategoryUnknown   = "Unknown Error"
	RemedyUnknown     = "An unexpected error occurred."
)

type Rule struct {
	Match    func(msg string) bool
	Category string
	Remedy   string
}

func anyOf(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}
}

func allOf(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if !strings.Contains(msg, w) {
				return false
			}
		}
		return true
	}
}

func both(a, b func(string) bool) func(string) bool {
	return func(msg string) bool { return a(msg) && b(msg) }
}

var authWords = anyOf("login", "authentication", "private")

// Rules is evaluated top to bottom and the first match wins. Order is part of the contract:
// the instagram stories rule must stay ahead of the generic authentication rule.
var Rules = []Rule{
	{anyOf("network", "connection", "timeout"), "Network Error", "Check your internet connection and try again."},
	{both(authWords, allOf("instagram", "stories")), "Instagram Story Restriction", "Instagram stories often require login. Try a public post or reel."},
	{authWords, "Authentication Required", "This content requires login, which is disabled. Try a different video."},
	{allOf("format", "not available"), "Format Error", "Try a different quality setting."},
	{anyOf("ffmpeg"), "FFmpeg Error", "FFmpeg is required. Install it and restart the panel."},
	{anyOf("instagram"), "Instagram Restriction", "Instagram content may have restrictions. Try a different URL."},
	{anyOf("youtube"), "YouTube Restriction", "Some YouTube videos are restricted. Try a different video."},
	{anyOf("unsupported", "not a valid"), CategoryURL, "The URL is invalid or from an unsupported site."},
	{anyOf("permission denied", "cannot write"), "Permission Error", "Check write permissions to the output directory."},
	{anyOf("invalid option", "unknown option"), "Configuration Error", "Check the advanced options."},
	{anyOf("live stream", "cannot download live"), "Live Stream Error", "Live streams cannot be downloaded."},
	{anyOf("rate limit", "too many requests"), "Rate Limit Error", "Too many requests. Try again later."},
	{anyOf("video unavailable", "deleted"), "Content Error", "The video is unavailable or deleted."},
	{anyOf("no subtitles", "subtitles not found"), "Subtitle Error", "Subtitles are not available."},
	{anyOf("disk full", "no space left"), "Disk Space Error", "Free up disk space and try again."},
	{anyOf("ssl", "certificate"), "SSL Error", "Update certificates or check network settings."},
	{anyOf("proxy"), "Proxy Error", "Check proxy configuration."},
	{anyOf("invalid character", "filename too long"), "Filename Error", "Change the filename template in advanced settings."},
	{anyOf("index out of range", "invalid playlist index"), "Playlist Error", "Check playlist indices."},
	{anyOf("file too large", "exceeds max size", "larger than max-filesize"), "File Size Error", "Try lower quality or increase the limit."},
}

// Classify returns the category and remedy for msg. It is case-insensitive and total.
func Classify(msg string) (category, remedy string) {
	lower := strings.ToLower(msg)
	for _, r := range Rules {
		if r.Match(lower) {
			return r.Category, r.Remedy
		}
	}
	return CategoryUnknown, RemedyUnknown
}

const (
	RemedyTimeout   = "The download took too long. Try a lower quality or a shorter playlist range."
	RemedyCancelled = "The batch was cancelled before this item finished."
)
