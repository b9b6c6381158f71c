// Content-addressed package file pool.
//
// Files live at `<component>/<prefix>/<source>/<filename>` under the pool
// root, where prefix is the first letter of the source name ("libfoo" keeps
// its "libf" prefix). The same filename may be published from several
// components, but only one copy of the bytes is kept: the first component to
// place the file holds the canonical copy and later components get relative
// symlinks to it.
package pool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	domerr "github.com/granary-project/granary/pkg/domain/errors"
)

type Result string

const (
	// the file was new and has been written.
	Written Result = "written"

	// the same bytes were already in place. Nothing was done.
	AlreadyPresent Result = "already-present"

	// the bytes were already in the pool under another component.
	// A symlink was created instead of a second copy.
	Symlinked Result = "symlinked"
)

func (r Result) String() string {
	return string(r)
}

// OverwriteError is raised when a placement would change the bytes behind an
// existing pool filename. Pool filenames are immutable once written.
type OverwriteError struct {
	Path         string
	ExistingHash string
	NewHash      string
}

func (e *OverwriteError) Error() string {
	return fmt.Sprintf(
		"will not overwrite %s: on disk %s, incoming %s",
		e.Path, e.ExistingHash, e.NewHash,
	)
}

func (e *OverwriteError) Unwrap() error {
	return domerr.ErrConflict
}

// Prefix gives the pool directory prefix for a source package name.
// "hello" files go under "h", "libfoo" files under "libf".
func Prefix(sourceName string) string {
	if strings.HasPrefix(sourceName, "lib") && len(sourceName) > 3 {
		return sourceName[:4]
	}
	return sourceName[:1]
}

// DiskPool places package files under a pool root directory.
//
// All operations are idempotent keyed by content hash, so publishers racing
// to place the same file are safe to retry.
type DiskPool struct {
	root string
}

func New(root string) *DiskPool {
	return &DiskPool{root: root}
}

func (p *DiskPool) Root() string {
	return p.root
}

// RelativePath is the pool-internal path of a file, as recorded in indexes.
func RelativePath(component, sourceName, filename string) string {
	return filepath.Join(component, Prefix(sourceName), sourceName, filename)
}

func (p *DiskPool) filepath(component, sourceName, filename string) string {
	return filepath.Join(p.root, RelativePath(component, sourceName, filename))
}

func legalFilename(filename string) bool {
	if filename == "" || filename == "." || filename == ".." {
		return false
	}
	return !strings.ContainsAny(filename, "/\x00")
}

func hashOf(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func hashOfFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashOf(content), nil
}

// Place puts content into the pool as
// `<component>/<prefix>/<sourceName>/<filename>`.
//
// When the filename is already on disk with the same bytes, nothing happens
// (AlreadyPresent), even when the caller is an independent re-upload of the
// same file. When it is on disk with different bytes, placement fails with
// OverwriteError and the pool is untouched. When the bytes are already held
// by another component, the new component gets a relative symlink to the
// canonical copy (Symlinked).
func (p *DiskPool) Place(component, sourceName, filename string, content []byte) (Result, error) {
	if !legalFilename(filename) {
		return "", fmt.Errorf("'%s' is not a legal pool filename", filename)
	}
	if sourceName == "" || !legalFilename(sourceName) {
		return "", fmt.Errorf("'%s' is not a legal source name", sourceName)
	}

	target := p.filepath(component, sourceName, filename)
	newHash := hashOf(content)

	if _, err := os.Lstat(target); err == nil {
		existingHash, err := hashOfFile(target)
		if err != nil {
			return "", err
		}
		if existingHash == newHash {
			return AlreadyPresent, nil
		}
		return "", &OverwriteError{
			Path:         RelativePath(component, sourceName, filename),
			ExistingHash: existingHash,
			NewHash:      newHash,
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	// The filename may already be held by another component.
	for _, other := range p.components() {
		if other == component {
			continue
		}
		canonical := p.filepath(other, sourceName, filename)
		info, err := os.Lstat(canonical)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			continue
		}
		existingHash, err := hashOfFile(canonical)
		if err != nil {
			return "", err
		}
		if existingHash != newHash {
			return "", &OverwriteError{
				Path:         RelativePath(other, sourceName, filename),
				ExistingHash: existingHash,
				NewHash:      newHash,
			}
		}
		if err := p.symlink(canonical, target); err != nil {
			return "", err
		}
		return Symlinked, nil
	}

	if err := p.write(target, content); err != nil {
		return "", err
	}
	return Written, nil
}

// write lands content at target atomically. Concurrent writers of the same
// content may race, but rename makes the last one win with identical bytes.
func (p *DiskPool) write(target string, content []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		if werr != nil {
			return werr
		}
		return cerr
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (p *DiskPool) symlink(canonical, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rel, err := filepath.Rel(filepath.Dir(target), canonical)
	if err != nil {
		return err
	}
	return os.Symlink(rel, target)
}

// Remove takes one component's copy of a file out of the pool.
//
// Removing a symlink drops just that component's entry. Removing the
// canonical copy while symlinks survive promotes one surviving component to
// canonical (the bytes move there and remaining symlinks are repointed);
// the returned bool reports whether such a promotion happened.
func (p *DiskPool) Remove(component, sourceName, filename string) (bool, error) {
	target := p.filepath(component, sourceName, filename)
	info, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return false, fmt.Errorf(
			"%w: pool file %s", domerr.ErrMissing,
			RelativePath(component, sourceName, filename),
		)
	} else if err != nil {
		return false, err
	}

	if info.Mode()&os.ModeSymlink != 0 {
		return false, os.Remove(target)
	}

	links := p.symlinksTo(target, sourceName, filename)
	if len(links) == 0 {
		return false, os.Remove(target)
	}

	// Promote the first surviving component to canonical.
	promoted := links[0]
	if err := os.Remove(promoted); err != nil {
		return false, err
	}
	if err := os.Rename(target, promoted); err != nil {
		return false, err
	}
	for _, link := range links[1:] {
		if err := os.Remove(link); err != nil {
			return true, err
		}
		if err := p.symlink(promoted, link); err != nil {
			return true, err
		}
	}
	return true, nil
}

// symlinksTo finds the same pool filename in other components when it is a
// symlink resolving to canonical. Sorted by component name so that promotion
// is deterministic.
func (p *DiskPool) symlinksTo(canonical, sourceName, filename string) []string {
	found := []string{}
	for _, component := range p.components() {
		candidate := p.filepath(component, sourceName, filename)
		if candidate == canonical {
			continue
		}
		info, err := os.Lstat(candidate)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		resolved, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			continue
		}
		want, err := filepath.EvalSymlinks(canonical)
		if err != nil {
			continue
		}
		if resolved == want {
			found = append(found, candidate)
		}
	}
	sort.Strings(found)
	return found
}

func (p *DiskPool) components() []string {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil
	}
	components := []string{}
	for _, e := range entries {
		if e.IsDir() {
			components = append(components, e.Name())
		}
	}
	return components
}

// Contents reads a pool file back, following symlinks.
func (p *DiskPool) Contents(component, sourceName, filename string) ([]byte, error) {
	content, err := os.ReadFile(p.filepath(component, sourceName, filename))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf(
			"%w: pool file %s", domerr.ErrMissing,
			RelativePath(component, sourceName, filename),
		)
	}
	return content, err
}
