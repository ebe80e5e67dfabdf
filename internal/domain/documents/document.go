package documents

import "io/fs"

// Document is a metadata row projected from the filesystem at query time.
type Document struct {
	ID           string        `json:"document_id"`
	DisplayName  string        `json:"display_name"`
	Size         int64         `json:"size"`
	MIMEType     string        `json:"mime_type"`
	LastModified int64         `json:"last_modified"`
	Flags        DocumentFlags `json:"flags"`
	Icon         string        `json:"icon,omitempty"`
}

// IsDir reports whether the document is a directory.
func (d Document) IsDir() bool {
	return d.MIMEType == MIMETypeDir
}

func typeForInfo(info fs.FileInfo) string {
	if info.IsDir() {
		return MIMETypeDir
	}
	return TypeForName(info.Name())
}

// projectPath builds the row for an absolute path. Directories report size 0.
func (s *Service) projectPath(p string, info fs.FileInfo) (Document, error) {
	id, err := s.codec.Encode(p)
	if err != nil {
		return Document{}, err
	}

	mime := typeForInfo(info)
	var flags DocumentFlags
	if canWrite(p) {
		flags |= FlagSupportsWrite | FlagSupportsDelete
		if info.IsDir() {
			flags |= FlagDirSupportsCreate
		}
	}
	if IsImage(mime) {
		flags |= FlagSupportsThumbnail
	}

	size := info.Size()
	if info.IsDir() {
		size = 0
	}

	doc := Document{
		ID:           id,
		DisplayName:  info.Name(),
		Size:         size,
		MIMEType:     mime,
		LastModified: info.ModTime().UnixMilli(),
		Flags:        flags,
	}
	if p == s.codec.Base() {
		doc.Icon = s.cfg.Icon
	}
	return doc, nil
}
