package install

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/platform"
	"github.com/terrarium-dev/terrarium/internal/prefix"
)

// PythonPackageName is the conda package that provides the interpreter.
const PythonPackageName = "python"

// LinkingInstaller applies conda transactions by hard-linking extracted
// package contents from a local cache into the prefix. It never talks to a
// package index; every desired package must already be extracted under the
// cache directory, one directory per package named after its archive stem,
// with an info/files listing of the paths to link.
type LinkingInstaller struct{}

// metaRecord is what LinkingInstaller writes into conda-meta: the package
// record plus the linked file list needed to unlink it again.
type metaRecord struct {
	prefix.Record
	Files []string `json:"files,omitempty"`
}

// Install computes the difference between the installed records and the
// desired lock entries and applies it: removed or changed packages are
// unlinked, new or changed packages are linked from the cache.
func (LinkingInstaller) Install(ctx context.Context, req CondaRequest) (*TransactionResult, error) {
	result := &TransactionResult{
		PreviousPython: pythonFromRecords(req.Installed, req.Platform),
	}

	desiredByName := make(map[string]lockfile.Package, len(req.Desired))
	for _, pkg := range req.Desired {
		desiredByName[pkg.Name] = pkg
	}
	installedByName := make(map[string]prefix.Record, len(req.Installed))
	for _, rec := range req.Installed {
		installedByName[rec.Name] = rec
	}

	for _, rec := range req.Installed {
		pkg, keep := desiredByName[rec.Name]
		if keep && pkg.Location == rec.Location {
			continue
		}
		if err := unlinkPackage(req.TargetPrefix, rec); err != nil {
			return nil, err
		}
		result.Unlinked++
	}

	for _, pkg := range req.Desired {
		rec, present := installedByName[pkg.Name]
		if present && rec.Location == pkg.Location {
			continue
		}
		if err := linkPackage(ctx, req, pkg); err != nil {
			return nil, err
		}
		result.Linked++
	}

	result.CurrentPython = pythonFromPackages(req.Desired, req.Platform)
	return result, nil
}

// archiveStem strips the directory and archive suffix from a package
// location, leaving the name-version-build stem the cache directory and
// the conda-meta record are named after.
func archiveStem(location string) string {
	base := location
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".conda")
	base = strings.TrimSuffix(base, ".tar.bz2")
	return base
}

func metaRecordPath(prefixDir, stem string) string {
	return filepath.Join(prefixDir, prefix.CondaMetaDir, stem+".json")
}

func unlinkPackage(prefixDir string, rec prefix.Record) error {
	metaPath := metaRecordPath(prefixDir, archiveStem(rec.Location))

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read package record %s: %w", metaPath, err)
	}
	var meta metaRecord
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("parse package record %s: %w", metaPath, err)
	}

	for _, file := range meta.Files {
		target := filepath.Join(prefixDir, filepath.FromSlash(file))
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("unlink %s: %w", target, err)
		}
	}
	if err := os.Remove(metaPath); err != nil {
		return fmt.Errorf("remove package record %s: %w", metaPath, err)
	}
	return nil
}

func linkPackage(ctx context.Context, req CondaRequest, pkg lockfile.Package) error {
	stem := archiveStem(pkg.Location)
	srcDir := filepath.Join(req.Cache.Dir, stem)

	files, err := readPackageFiles(srcDir)
	if err != nil {
		return fmt.Errorf("package %s is not extracted in the cache: %w", stem, err)
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, file := range files {
		group.Go(func() error {
			if req.IOLimit != nil {
				if err := req.IOLimit.Acquire(gctx); err != nil {
					return err
				}
				defer req.IOLimit.Release()
			}
			src := filepath.Join(srcDir, filepath.FromSlash(file))
			dst := filepath.Join(req.TargetPrefix, filepath.FromSlash(file))
			return linkOrCopy(src, dst)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("link package %s: %w", stem, err)
	}

	meta := metaRecord{
		Record: prefix.Record{
			Name:     pkg.Name,
			Version:  pkg.Version,
			Build:    buildFromStem(stem, pkg.Name, pkg.Version),
			Location: pkg.Location,
			Sha256:   pkg.Sha256,
			Md5:      pkg.Md5,
		},
		Files: files,
	}
	metaPath := metaRecordPath(req.TargetPrefix, stem)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0o755); err != nil {
		return fmt.Errorf("create conda-meta directory: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal package record: %w", err)
	}
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return fmt.Errorf("write package record %s: %w", metaPath, err)
	}
	return nil
}

// readPackageFiles reads the info/files listing of an extracted package,
// one slash-separated relative path per line.
func readPackageFiles(srcDir string) ([]string, error) {
	f, err := os.Open(filepath.Join(srcDir, "info", "files"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files = append(files, line)
		}
	}
	return files, scanner.Err()
}

// linkOrCopy hard-links src to dst, falling back to a copy when linking is
// not possible (cross-device caches, filesystems without hard links).
func linkOrCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Link(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// buildFromStem recovers the build string from a name-version-build archive
// stem.
func buildFromStem(stem, name, version string) string {
	return strings.TrimPrefix(stem, name+"-"+version+"-")
}

func pythonFromRecords(records []prefix.Record, p platform.Platform) *PythonInfo {
	for _, rec := range records {
		if rec.Name == PythonPackageName {
			return pythonInfoFor(rec.Version, p)
		}
	}
	return nil
}

func pythonFromPackages(packages []lockfile.Package, p platform.Platform) *PythonInfo {
	for _, pkg := range packages {
		if pkg.Name == PythonPackageName {
			return pythonInfoFor(pkg.Version, p)
		}
	}
	return nil
}

// pythonInfoFor derives the interpreter layout inside a prefix from the
// interpreter version. On Windows the site-packages directory does not
// embed the version, so interpreter upgrades reuse it.
func pythonInfoFor(version string, p platform.Platform) *PythonInfo {
	short := ShortVersionOf(version)
	if p.IsWindows() {
		return &PythonInfo{
			Path:             "python.exe",
			Version:          version,
			ShortVersion:     short,
			SitePackagesPath: filepath.Join("Lib", "site-packages"),
		}
	}
	return &PythonInfo{
		Path:             filepath.Join("bin", "python"),
		Version:          version,
		ShortVersion:     short,
		SitePackagesPath: filepath.Join("lib", "python"+short, "site-packages"),
	}
}
