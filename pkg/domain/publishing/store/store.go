// Content-addressed access to uploaded package file bytes.
//
// Releases declare their files by SHA-256; this package turns a hash back
// into bytes when the publisher lands them in the pool.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	domerr "github.com/granary-project/granary/pkg/domain/errors"
)

type Interface interface {
	// Contents returns the bytes behind a SHA-256 hash.
	//
	// Returns error wrapping ErrMissing when the store never saw the hash.
	Contents(ctx context.Context, sha256 string) ([]byte, error)
}

// Dir is a filesystem store holding each blob at `<hash[:2]>/<hash>`.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: root}
}

func (d *Dir) path(hash string) string {
	return filepath.Join(d.root, hash[:2], hash)
}

func (d *Dir) Contents(_ context.Context, hash string) ([]byte, error) {
	if len(hash) < 3 {
		return nil, fmt.Errorf("'%s' is not a content hash", hash)
	}
	content, err := os.ReadFile(d.path(hash))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: blob %s", domerr.ErrMissing, hash)
	}
	return content, err
}

// Put stores a blob and returns its hash.
func (d *Dir) Put(_ context.Context, content []byte) (string, error) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	target := d.path(hash)
	if _, err := os.Stat(target); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+hash+".*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		if werr != nil {
			return "", werr
		}
		return "", cerr
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return hash, nil
}
