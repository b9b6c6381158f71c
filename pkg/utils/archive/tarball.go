package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsafePath = errors.New("entry path escapes the extraction root")

// handler of tar entry.
//
// args:
//   - header: header of tar entry
//   - payload: `io.Reader` points the content of the tar entry.
//   - err: error happens when get a tar entry.
//     err is never `io.EOF`.
//     Because walking focuses each entries, not whole tar file.
//
// return:
//
//	any error which caused in a handler.
//	You can early terminate with return `WalkBreak()`
type TarWalker func(header *tar.Header, payload io.Reader, err error) error

type walkBreak struct {
	error string
}

func (w walkBreak) Error() string {
	return w.error
}

func WalkBreak() walkBreak {
	return walkBreak{}
}

// traverse tar entry.
//
// args:
//   - from io.Reader: Reader object refers *.tar.gz stream.
//     This function does not close `from`.
//   - walker TarWalker: tar entry handler.
//
// return: error, caused reading tar.gz or returned by walker.
//
//	If nothing happens, it returns `nil`.
func TarGzWalk(from io.Reader, walker TarWalker) error {
	gzin, err := gzip.NewReader(from)
	if err != nil {
		return err
	}
	defer gzin.Close()

	tarin := tar.NewReader(gzin)
	for {
		header, err := tarin.Next()
		if err == io.EOF {
			return nil
		}
		err = walker(header, tarin, err)
		if err == nil {
			continue
		}
		switch err.(type) {
		case walkBreak:
			return nil
		default:
			return err
		}
	}
}

// ExtractTarGz unpacks a *.tar.gz stream below dest.
//
// Entry names are confined to dest: absolute names and names walking out
// through ".." fail with ErrUnsafePath before anything of the entry is
// written. Only regular files and symlinks are materialized.
func ExtractTarGz(ctx context.Context, src io.Reader, dest string) error {
	return TarGzWalk(src, func(header *tar.Header, payload io.Reader, err error) error {
		if err != nil {
			return err
		}
		if header.Name == "" {
			return nil
		}

		fullpath, err := confine(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(fullpath, 0o755)
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(fullpath), 0o755); err != nil {
				return err
			}
			if err := os.RemoveAll(fullpath); err != nil {
				return err
			}
			return os.Symlink(header.Linkname, fullpath)
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(fullpath), 0o755); err != nil {
				return err
			}
			fp, err := os.OpenFile(
				fullpath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777,
			)
			if err != nil {
				return err
			}
			defer fp.Close()
			if _, err := io.Copy(fp, &ctxReader{ctx: ctx, r: payload}); err != nil {
				return err
			}
			return fp.Close()
		default:
			return nil
		}
	})
}

func confine(dest string, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	fullpath := filepath.Join(dest, name)
	if fullpath != dest && !strings.HasPrefix(fullpath, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return fullpath, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}
	return r.r.Read(p)
}
