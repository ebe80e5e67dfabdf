package documents

import (
	"path"
	"path/filepath"
	"strings"
)

// Codec maps between absolute paths under a base directory and document
// identifiers of the form "<tag>:<relative/path>".
//
// Codec is pure string manipulation. Whether the decoded path exists is
// checked by Service.
type Codec struct {
	tag  string
	base string
}

// NewCodec creates a codec for the given root tag and absolute base directory.
func NewCodec(tag, base string) Codec {
	return Codec{tag: tag, base: filepath.Clean(base)}
}

// Tag returns the root tag.
func (c Codec) Tag() string { return c.tag }

// Base returns the base directory.
func (c Codec) Base() string { return c.base }

// RootID returns the identifier of the base directory itself.
func (c Codec) RootID() string { return c.tag + ":" }

// Encode returns the identifier for an absolute path under the base directory.
// Paths outside the base directory are reported as ErrNotFound.
func (c Codec) Encode(p string) (string, error) {
	p = filepath.Clean(p)
	if p == c.base {
		return c.RootID(), nil
	}

	rel, err := filepath.Rel(c.base, p)
	if err != nil || !isBelow(rel) {
		return "", newError("encode", p, ErrNotFound, "no root contains %s", p)
	}
	return c.tag + ":" + filepath.ToSlash(rel), nil
}

// Decode returns the absolute path named by id. The separator is the first
// ':' at or after index 1; a bare tag names the base directory.
func (c Codec) Decode(id string) (string, error) {
	if id == c.tag {
		return c.base, nil
	}

	split := -1
	if len(id) > 1 {
		if i := strings.IndexByte(id[1:], ':'); i >= 0 {
			split = i + 1
		}
	}
	if split < 0 {
		return "", newError("decode", id, ErrInvalidRequest, "missing root separator")
	}

	tag, rel := id[:split], id[split+1:]
	if tag != c.tag {
		return "", newError("decode", id, ErrNotFound, "no root for %s", tag)
	}
	if rel == "" {
		return c.base, nil
	}
	if strings.HasPrefix(rel, "/") {
		return "", newError("decode", id, ErrInvalidRequest, "relative path must not start with /")
	}

	clean := path.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", newError("decode", id, ErrInvalidRequest, "relative path escapes the root")
	}
	return filepath.Join(c.base, filepath.FromSlash(clean)), nil
}

// isBelow reports whether a filepath.Rel result stays under its base.
func isBelow(rel string) bool {
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
