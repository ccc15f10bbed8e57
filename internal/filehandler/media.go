// Package filehandler knows which media files the gallery handles and how to
// turn them into something a vision model can look at: MIME types, directory
// scanning with EXIF metadata, ffmpeg frame extraction for videos, and a
// generated placeholder when no frame can be had.
package filehandler

import (
	"path/filepath"
	"strings"
)

// Kind is the broad media category of a file.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindUnknown Kind = ""
)

// DefaultImageMIMEType is sent for images whose extension is not recognized.
const DefaultImageMIMEType = "image/jpeg"

// SupportedImageExtensions defines the image extensions the gallery analyzes.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// SupportedVideoExtensions defines the video extensions the gallery analyzes
// through a representative frame.
var SupportedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".m4v":  "video/x-m4v",
}

// ImageMIMEType returns the MIME type for an image path, defaulting to
// image/jpeg for unknown extensions.
func ImageMIMEType(path string) string {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return mimeType
	}
	return DefaultImageMIMEType
}

// IsImage returns true if the file extension corresponds to an image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// IsVideo returns true if the file extension corresponds to a video.
func IsVideo(ext string) bool {
	_, ok := SupportedVideoExtensions[strings.ToLower(ext)]
	return ok
}

// IsSupported returns true if the file extension is supported (image or video).
func IsSupported(ext string) bool {
	return IsImage(ext) || IsVideo(ext)
}

// KindOf classifies a path by its extension.
func KindOf(path string) Kind {
	ext := filepath.Ext(path)
	switch {
	case IsImage(ext):
		return KindImage
	case IsVideo(ext):
		return KindVideo
	default:
		return KindUnknown
	}
}
