// Package download runs a single URL through the extraction collaborator into a
// dedicated output directory and turns the outcome into a models.DownloadResult.
// The collaborator sits behind the Extractor interface; YTDLP is the production
// implementation built on github.com/lrstanley/go-ytdlp.
package download
