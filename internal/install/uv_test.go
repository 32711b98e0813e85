package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrarium-dev/terrarium/internal/lockfile"
	"github.com/terrarium-dev/terrarium/internal/prefix"
)

func TestWriteRequirements(t *testing.T) {
	path, err := writeRequirements(PyPiRequest{
		LockFileDir: "/work/project",
		Desired: []lockfile.Package{
			{Kind: lockfile.KindPyPi, Name: "requests", Version: "2.31.0"},
			{Kind: lockfile.KindPyPi, Name: "rich", Version: "13.0.0", Extras: []string{"jupyter", "markdown"}},
			{Kind: lockfile.KindPyPi, Name: "mypkg", Editable: true, Location: "packages/mypkg"},
		},
	})
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := "requests==2.31.0\n" +
		"rich[jupyter,markdown]==13.0.0\n" +
		"-e " + filepath.Join("/work/project", "packages/mypkg") + "\n"
	assert.Equal(t, want, string(data))
}

func TestUninstallRemovesRecordedFiles(t *testing.T) {
	sitePackages := t.TempDir()
	distInfo := filepath.Join(sitePackages, "mypkg-1.0.dist-info")
	require.NoError(t, os.MkdirAll(distInfo, 0o755))

	pkgDir := filepath.Join(sitePackages, "mypkg")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "__init__.py"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sitePackages, "keep.py"), []byte("x"), 0o644))

	record := "mypkg/__init__.py,sha256=abc,1\n" +
		"mypkg-1.0.dist-info/RECORD,,\n"
	require.NoError(t, os.WriteFile(filepath.Join(distInfo, "RECORD"), []byte(record), 0o644))

	installer := &UvInstaller{InstallerName: "terrarium-uv"}
	require.NoError(t, installer.Uninstall(context.Background(), prefix.InstalledDist{
		Name: "mypkg",
		Path: distInfo,
	}))

	assert.NoFileExists(t, filepath.Join(pkgDir, "__init__.py"))
	assert.NoDirExists(t, distInfo)
	assert.FileExists(t, filepath.Join(sitePackages, "keep.py"))
}

func TestUninstallWithoutRecord(t *testing.T) {
	sitePackages := t.TempDir()
	distInfo := filepath.Join(sitePackages, "mypkg-1.0.dist-info")
	require.NoError(t, os.MkdirAll(distInfo, 0o755))

	installer := &UvInstaller{}
	require.NoError(t, installer.Uninstall(context.Background(), prefix.InstalledDist{
		Name: "mypkg",
		Path: distInfo,
	}))
	assert.NoDirExists(t, distInfo)
}

func TestStampInstaller(t *testing.T) {
	prefixDir := t.TempDir()
	sitePackagesRel := filepath.Join("lib", "python3.11", "site-packages")
	sitePackages := filepath.Join(prefixDir, sitePackagesRel)

	makeDist := func(name, installer string) string {
		distInfo := filepath.Join(sitePackages, name+"-1.0.dist-info")
		require.NoError(t, os.MkdirAll(distInfo, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(distInfo, "INSTALLER"), []byte(installer+"\n"), 0o644))
		return distInfo
	}
	fresh := makeDist("fresh", "uv")
	foreign := makeDist("foreign", "pip")

	installer := &UvInstaller{InstallerName: "terrarium-uv"}
	require.NoError(t, installer.stampInstaller(PyPiRequest{
		TargetPrefix:     prefixDir,
		SitePackagesPath: sitePackagesRel,
	}))

	data, err := os.ReadFile(filepath.Join(fresh, "INSTALLER"))
	require.NoError(t, err)
	assert.Equal(t, "terrarium-uv\n", string(data))

	data, err = os.ReadFile(filepath.Join(foreign, "INSTALLER"))
	require.NoError(t, err)
	assert.Equal(t, "pip\n", string(data))
}
