package documents

import "strings"

// DocumentFlags is the capability bitmask reported for each document.
type DocumentFlags int

const (
	FlagSupportsThumbnail DocumentFlags = 1 << iota
	FlagSupportsWrite
	FlagSupportsDelete
	FlagDirSupportsCreate
)

// Has reports whether every bit of flag is set.
func (f DocumentFlags) Has(flag DocumentFlags) bool {
	return f&flag == flag
}

func (f DocumentFlags) String() string {
	var names []string
	if f.Has(FlagSupportsThumbnail) {
		names = append(names, "thumbnail")
	}
	if f.Has(FlagSupportsWrite) {
		names = append(names, "write")
	}
	if f.Has(FlagSupportsDelete) {
		names = append(names, "delete")
	}
	if f.Has(FlagDirSupportsCreate) {
		names = append(names, "create")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// RootFlags is the capability bitmask reported for the root.
type RootFlags int

const (
	RootFlagSupportsCreate  RootFlags = 1
	RootFlagSupportsRecents RootFlags = 4
	RootFlagSupportsSearch  RootFlags = 8
)

// Has reports whether every bit of flag is set.
func (f RootFlags) Has(flag RootFlags) bool {
	return f&flag == flag
}
