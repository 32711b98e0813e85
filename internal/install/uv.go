package install

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/terrarium-dev/terrarium/internal/prefix"
)

// UvInstaller synchronizes PyPI packages by driving the uv executable.
type UvInstaller struct {
	// UvPath is the uv executable; "uv" is resolved from PATH when empty.
	UvPath string

	// InstallerName is stamped into each installed distribution's INSTALLER
	// record so a later purge can recognize the installs as ours.
	InstallerName string
}

func (u *UvInstaller) uv() string {
	if u.UvPath != "" {
		return u.UvPath
	}
	return "uv"
}

// Sync brings the interpreter's site-packages exactly in line with the
// desired lock entries: missing packages are installed, unlisted ones are
// removed by uv itself.
func (u *UvInstaller) Sync(ctx context.Context, req PyPiRequest) error {
	reqFile, err := writeRequirements(req)
	if err != nil {
		return err
	}
	defer os.Remove(reqFile)

	args := []string{"pip", "sync", "--python", req.PythonPath}
	if req.Indexes != nil {
		if req.Indexes.IndexURL != "" {
			args = append(args, "--index-url", req.Indexes.IndexURL)
		}
		for _, url := range req.Indexes.ExtraIndexURLs {
			args = append(args, "--extra-index-url", url)
		}
	}
	for _, name := range req.NoBuildIsolation {
		args = append(args, "--no-build-isolation-package", name)
	}
	args = append(args, reqFile)

	cmd := exec.CommandContext(ctx, u.uv(), args...)
	cmd.Dir = req.LockFileDir
	cmd.Env = os.Environ()
	for key, value := range req.EnvironmentVariables {
		cmd.Env = append(cmd.Env, key+"="+value)
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("uv pip sync failed: %w\n%s", err, output.String())
	}

	return u.stampInstaller(req)
}

// writeRequirements renders the desired lock entries into a temporary
// requirements file. Editable locations resolve against the lock file
// directory.
func writeRequirements(req PyPiRequest) (string, error) {
	var b strings.Builder
	for _, pkg := range req.Desired {
		if pkg.Editable {
			location := pkg.Location
			if !filepath.IsAbs(location) {
				location = filepath.Join(req.LockFileDir, location)
			}
			fmt.Fprintf(&b, "-e %s\n", location)
			continue
		}
		name := pkg.Name
		if len(pkg.Extras) > 0 {
			name += "[" + strings.Join(pkg.Extras, ",") + "]"
		}
		fmt.Fprintf(&b, "%s==%s\n", name, pkg.Version)
	}

	f, err := os.CreateTemp("", "terrarium-requirements-*.txt")
	if err != nil {
		return "", fmt.Errorf("create requirements file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write requirements file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// stampInstaller rewrites the INSTALLER record of every distribution uv
// just installed to our own identity.
func (u *UvInstaller) stampInstaller(req PyPiRequest) error {
	if u.InstallerName == "" || req.SitePackagesPath == "" {
		return nil
	}
	sitePackages := filepath.Join(req.TargetPrefix, req.SitePackagesPath)
	dists, err := prefix.FindInstalledDists(sitePackages)
	if err != nil {
		return fmt.Errorf("inspect site-packages after sync: %w", err)
	}
	for _, dist := range dists {
		if dist.Installer != "uv" {
			continue
		}
		installerPath := filepath.Join(dist.Path, "INSTALLER")
		if err := os.WriteFile(installerPath, []byte(u.InstallerName+"\n"), 0o644); err != nil {
			return fmt.Errorf("record installer for %s: %w", dist.Name, err)
		}
	}
	return nil
}

// Uninstall removes one installed distribution by deleting every file its
// RECORD references, then the dist-info directory itself.
func (u *UvInstaller) Uninstall(ctx context.Context, dist prefix.InstalledDist) error {
	sitePackages := filepath.Dir(dist.Path)

	recordPath := filepath.Join(dist.Path, "RECORD")
	f, err := os.Open(recordPath)
	if err != nil {
		if os.IsNotExist(err) {
			return os.RemoveAll(dist.Path)
		}
		return fmt.Errorf("read %s: %w", recordPath, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse %s: %w", recordPath, err)
	}

	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		target := filepath.Join(sitePackages, filepath.FromSlash(row[0]))
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", target, err)
		}
	}
	return os.RemoveAll(dist.Path)
}
