// Package documents exposes a single sandboxed directory as a virtual document
// namespace.
//
// Every file or directory under the base directory is named by an opaque
// identifier of the form "<tag>:<relative/path>". The root itself is "<tag>:"
// (the bare tag is accepted as an alias when decoding).
//
// Operations:
//   - Roots: the single root row with live free space
//   - QueryDocument / ListChildren: metadata projected from the filesystem on demand
//   - Search: breadth-first, case-insensitive name match, capped result count
//   - Recent: breadth-first over the whole subtree, newest files first, capped
//   - Create / Delete: empty files, directories, non-recursive removal
//   - Open / OpenThumbnail: byte handles with an optional write-close callback
//
// Nothing is cached and no locks are taken. Search and Recent block the caller
// for the full traversal; pass a context to bound them.
//
// Example Usage:
//
//	svc, err := documents.New(documents.Config{BasePath: "/var/lib/docs"})
//	docs, err := svc.ListChildren(svc.RootID())
package documents
