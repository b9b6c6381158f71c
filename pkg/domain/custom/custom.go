// Package custom publishes the non-package files an upload can carry:
// installer images, release upgraders, translation tarballs and the like.
//
// Each format is a variant of the sealed Format interface. Adding a format
// means adding a type here, there is no dispatch table to keep in sync.
package custom

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/granary-project/granary/pkg/utils/archive"
)

// Environment locates the published archive tree a format writes into.
type Environment struct {
	// RootDir is the distribution's archive tree on disk, from its
	// publisher configuration.
	RootDir string

	// Suite is the "dists" entry the upload targets: "<series>" for the
	// RELEASE pocket, "<series>-<pocket>" otherwise.
	Suite string
}

func (e Environment) dists(elem ...string) string {
	return filepath.Join(append([]string{e.RootDir, "dists", e.Suite}, elem...)...)
}

// Blob is the custom file to publish.
type Blob struct {
	Filename string
	Content  []byte
}

// Format is one custom upload format.
//
// The interface is sealed: every variant lives in this package, so a switch
// over the concrete types is checkably exhaustive.
type Format interface {
	String() string

	// Publish lands the blob in the archive tree. A failure affects this
	// blob only, the caller publishes the rest of the upload regardless.
	Publish(ctx context.Context, env Environment, blob Blob) error

	sealedFormat()
}

type (
	// DebianInstaller is a d-i images tarball, one per architecture.
	DebianInstaller struct{}

	// DistUpgrader is a release upgrader tarball.
	DistUpgrader struct{}

	// DdtpTarball carries translated package descriptions for one component.
	DdtpTarball struct{}

	// RosettaTranslations is a translations tarball bound for the
	// translations importer, never for the archive tree.
	RosettaTranslations struct{}

	// StaticTranslations is a translations tarball served from the blob
	// store on request, never from the archive tree.
	StaticTranslations struct{}

	// MetaData is archive-level metadata published beside the tree.
	MetaData struct{}

	// Uefi is a boot artifact tarball published under the signed area.
	Uefi struct{}
)

func (DebianInstaller) String() string     { return "debian-installer" }
func (DistUpgrader) String() string        { return "dist-upgrader" }
func (DdtpTarball) String() string         { return "ddtp-tarball" }
func (RosettaTranslations) String() string { return "rosetta-translations" }
func (StaticTranslations) String() string  { return "static-translations" }
func (MetaData) String() string            { return "meta-data" }
func (Uefi) String() string                { return "uefi" }

func (DebianInstaller) sealedFormat()     {}
func (DistUpgrader) sealedFormat()        {}
func (DdtpTarball) sealedFormat()         {}
func (RosettaTranslations) sealedFormat() {}
func (StaticTranslations) sealedFormat()  {}
func (MetaData) sealedFormat()            {}
func (Uefi) sealedFormat()                {}

func AsFormat(name string) (Format, error) {
	for _, format := range []Format{
		DebianInstaller{}, DistUpgrader{}, DdtpTarball{},
		RosettaTranslations{}, StaticTranslations{}, MetaData{}, Uefi{},
	} {
		if format.String() == name {
			return format, nil
		}
	}
	return nil, fmt.Errorf("'%s' is not a custom upload format", name)
}

// Publish installs "<name>_<version>_<arch>.tar.gz" below
// dists/<suite>/main/installer-<arch>/<version>/ and repoints "current".
func (f DebianInstaller) Publish(ctx context.Context, env Environment, blob Blob) error {
	_, version, arch, err := splitTriplet(blob.Filename)
	if err != nil {
		return err
	}
	return extractVersioned(ctx, blob, env.dists("main", "installer-"+arch), version)
}

// Publish installs the upgrader below
// dists/<suite>/main/dist-upgrader-all/<version>/ and repoints "current".
func (f DistUpgrader) Publish(ctx context.Context, env Environment, blob Blob) error {
	_, version, _, err := splitTriplet(blob.Filename)
	if err != nil {
		return err
	}
	return extractVersioned(ctx, blob, env.dists("main", "dist-upgrader-all"), version)
}

// Publish unpacks "<name>_<component>_<version>.tar.gz" over
// dists/<suite>/<component>/. The tarball carries its own i18n layout.
func (f DdtpTarball) Publish(ctx context.Context, env Environment, blob Blob) error {
	_, component, _, err := splitTriplet(blob.Filename)
	if err != nil {
		return err
	}
	dest := env.dists(component)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	return archive.ExtractTarGz(ctx, bytes.NewReader(blob.Content), dest)
}

// Publish is a no-op: rosetta tarballs go to the translations importer,
// which reads them from the blob store.
func (f RosettaTranslations) Publish(context.Context, Environment, Blob) error {
	return nil
}

// Publish is a no-op: static translations are served from the blob store.
func (f StaticTranslations) Publish(context.Context, Environment, Blob) error {
	return nil
}

// Publish copies the blob to <root>/meta-data/<filename>.
func (f MetaData) Publish(ctx context.Context, env Environment, blob Blob) error {
	dir := filepath.Join(env.RootDir, "meta-data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.Base(blob.Filename))
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(blob.Filename)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(blob.Content)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		if werr != nil {
			return werr
		}
		return cerr
	}
	return os.Rename(tmpName, target)
}

// Publish installs "<name>_<version>_<arch>.tar.gz" below
// dists/<suite>/main/signed/<name>-<arch>/<version>/ and repoints
// "current". Signing itself happens before the upload reaches the queue.
func (f Uefi) Publish(ctx context.Context, env Environment, blob Blob) error {
	name, version, arch, err := splitTriplet(blob.Filename)
	if err != nil {
		return err
	}
	return extractVersioned(
		ctx, blob, env.dists("main", "signed", name+"-"+arch), version,
	)
}

// splitTriplet takes "<a>_<b>_<c>.tar.gz" apart.
func splitTriplet(filename string) (string, string, string, error) {
	base := filepath.Base(filename)
	stem, found := strings.CutSuffix(base, ".tar.gz")
	if !found {
		return "", "", "", fmt.Errorf("'%s' is not a tarball", filename)
	}
	fields := strings.Split(stem, "_")
	if len(fields) != 3 {
		return "", "", "", fmt.Errorf(
			"'%s' is not named like <name>_<version>_<arch>.tar.gz", filename,
		)
	}
	return fields[0], fields[1], fields[2], nil
}

func extractVersioned(ctx context.Context, blob Blob, targetDir string, version string) error {
	dest := filepath.Join(targetDir, version)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	if err := archive.ExtractTarGz(ctx, bytes.NewReader(blob.Content), dest); err != nil {
		return err
	}
	return repointCurrent(targetDir, version)
}

// repointCurrent atomically points <targetDir>/current at version.
func repointCurrent(targetDir string, version string) error {
	tmp := filepath.Join(targetDir, ".current.new")
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.Symlink(version, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(targetDir, "current"))
}
