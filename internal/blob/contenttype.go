package blob

import (
	"path"
	"strings"
)

// CacheControl is the directive set on every published artifact. Artifacts
// are immutable per deployment id, so clients may cache them for a year.
const CacheControl = "public, max-age=31536000"

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".ico":  "image/x-icon",
	".json": "application/json",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
}

// ContentTypeFor maps a key or path to a MIME type by extension. The worker
// and the gateway share this table; unrecognized extensions fall back to
// application/octet-stream.
func ContentTypeFor(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}
