package prefix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InstalledDist is one installed Python distribution found in a
// site-packages directory.
type InstalledDist struct {
	// Name is the distribution name taken from the dist-info directory.
	Name string
	// Path is the dist-info directory.
	Path string
	// Installer is the tool identity recorded by whoever installed the
	// distribution, or "" when it could not be determined. Unknown
	// installers are never safe to purge.
	Installer string
}

// FindInstalledDists scans a site-packages directory for installed
// distributions and reads each one's recorded installer identity.
func FindInstalledDists(sitePackages string) ([]InstalledDist, error) {
	entries, err := os.ReadDir(sitePackages)
	if err != nil {
		return nil, fmt.Errorf("read site-packages %s: %w", sitePackages, err)
	}

	var dists []InstalledDist
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), ".dist-info") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".dist-info")
		if idx := strings.Index(name, "-"); idx > 0 {
			name = name[:idx]
		}

		dist := InstalledDist{
			Name: name,
			Path: filepath.Join(sitePackages, entry.Name()),
		}

		installerPath := filepath.Join(dist.Path, "INSTALLER")
		data, err := os.ReadFile(installerPath)
		if err == nil {
			dist.Installer = strings.TrimSpace(string(data))
		}

		dists = append(dists, dist)
	}
	return dists, nil
}
