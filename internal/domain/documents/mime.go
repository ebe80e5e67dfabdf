package documents

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MIMETypeDir is reported for every directory.
	MIMETypeDir = "vnd.android.document/directory"
	// MIMETypeOctetStream is reported for files without a known extension.
	MIMETypeOctetStream = "application/octet-stream"
)

// extensionTypes is the static extension lookup. Keys are lower case and
// carry no leading dot.
var extensionTypes = map[string]string{
	"txt":  "text/plain",
	"text": "text/plain",
	"log":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"htm":  "text/html",
	"html": "text/html",
	"css":  "text/css",
	"xml":  "text/xml",
	"js":   "application/javascript",
	"json": "application/json",
	"pdf":  "application/pdf",
	"rtf":  "application/rtf",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"epub": "application/epub+zip",
	"apk":  "application/vnd.android.package-archive",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odt":  "application/vnd.oasis.opendocument.text",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"heic": "image/heic",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"wav":  "audio/x-wav",
	"flac": "audio/flac",
	"m4a":  "audio/mp4",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"3gp":  "video/3gpp",
	"mkv":  "video/x-matroska",
}

// canonicalExtensions picks one extension where several map to the same type.
var canonicalExtensions = map[string]string{
	"text/plain": "txt",
	"text/html":  "html",
	"image/jpeg": "jpg",
}

// TypeForName derives a MIME type from the extension of name.
func TypeForName(name string) string {
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		if mime, ok := extensionTypes[strings.ToLower(name[dot+1:])]; ok {
			return mime
		}
	}
	return MIMETypeOctetStream
}

// ExtensionFor returns the canonical extension (without dot) for a MIME type,
// or "" when none is known.
func ExtensionFor(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if ext, ok := canonicalExtensions[mime]; ok {
		return ext
	}
	for ext, m := range extensionTypes {
		if m == mime && canonicalExtensions[m] == "" {
			return ext
		}
	}
	if known := mimetype.Lookup(mime); known != nil {
		return strings.TrimPrefix(known.Extension(), ".")
	}
	return ""
}

// IsImage reports whether mime is an image type.
func IsImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}

// ValidateDisplayName appends the canonical extension for mime when the
// extension of name maps to a different type. An existing extension is never
// replaced. Directories and empty MIME types are left alone.
func ValidateDisplayName(mime, name string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" || mime == MIMETypeDir {
		return name
	}
	if TypeForName(name) == mime {
		return name
	}
	if ext := ExtensionFor(mime); ext != "" {
		return name + "." + ext
	}
	return name
}
