package transfer

import (
	"path"
	"path/filepath"
)

// Request names one local file to send and how its relative path should
// be reconstructed on the wire (spec.md §3 "Transfer request").
type Request struct {
	AbsPath string // absolute local path to the source file
	Root    string // directory the walk started from; AbsPath must be under it
	Base    string // prefixed ahead of the relative path, e.g. a directory's basename
}

// RelPath computes join(base, relpath(AbsPath, Root)) using forward
// slashes, the wire's native separator (spec.md §3, §9 "never on send").
func (r Request) RelPath() (string, error) {
	rel, err := filepath.Rel(r.Root, r.AbsPath)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if r.Base == "" {
		return rel, nil
	}
	return path.Join(r.Base, rel), nil
}
