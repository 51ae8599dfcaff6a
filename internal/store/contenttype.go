package store

import (
	"path/filepath"
	"strings"
)

// contentTypes maps file extensions to MIME types for uploads. Unknown
// extensions fall back to an opaque binary type.
var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".json": "application/json",
	".srt":  "application/x-subrip",
	".vtt":  "text/vtt",
	".txt":  "text/plain",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".flv":  "video/x-flv",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
}

// ContentTypeFor derives the MIME type from a filename or object key.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
