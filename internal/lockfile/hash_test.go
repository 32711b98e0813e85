package lockfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrarium-dev/terrarium/internal/platform"
)

func hashEnv(packages []Package) EnvironmentHash {
	env := &Environment{
		Packages: map[platform.Platform][]Package{
			platform.Linux64: packages,
		},
	}
	return HashEnvironment(env, platform.Linux64)
}

func TestHashEnvironmentDeterministic(t *testing.T) {
	packages := []Package{
		{Kind: KindConda, Name: "python", Version: "3.11.4", Location: "https://conda.anaconda.org/conda-forge/linux-64/python-3.11.4-h2755cc3_0.conda", Sha256: "aa"},
		{Kind: KindPyPi, Name: "requests", Version: "2.31.0", Location: "https://pypi.org/packages/requests-2.31.0-py3-none-any.whl"},
	}

	assert.Equal(t, hashEnv(packages), hashEnv(packages))
}

func TestHashEnvironmentOrderSensitive(t *testing.T) {
	a := Package{Kind: KindConda, Name: "a", Location: "https://example.com/a-1-0.conda", Sha256: "aa"}
	b := Package{Kind: KindConda, Name: "b", Location: "https://example.com/b-1-0.conda", Sha256: "bb"}

	assert.NotEqual(t, hashEnv([]Package{a, b}), hashEnv([]Package{b, a}))
}

func TestHashEnvironmentDigestSelection(t *testing.T) {
	base := Package{Kind: KindConda, Name: "a", Location: "https://example.com/a-1-0.conda"}

	withSha := base
	withSha.Sha256 = "aa"
	withBoth := withSha
	withBoth.Md5 = "bb"
	withMd5 := base
	withMd5.Md5 = "bb"

	t.Run("sha256 change changes the hash", func(t *testing.T) {
		other := base
		other.Sha256 = "cc"
		assert.NotEqual(t, hashEnv([]Package{withSha}), hashEnv([]Package{other}))
	})

	t.Run("md5 is ignored when sha256 is present", func(t *testing.T) {
		assert.Equal(t, hashEnv([]Package{withSha}), hashEnv([]Package{withBoth}))
	})

	t.Run("md5 is used when sha256 is absent", func(t *testing.T) {
		assert.NotEqual(t, hashEnv([]Package{base}), hashEnv([]Package{withMd5}))
	})
}

func TestHashEnvironmentPyPiFields(t *testing.T) {
	base := Package{Kind: KindPyPi, Name: "pkg", Location: "https://example.com/pkg-1.0-py3-none-any.whl"}

	t.Run("editable flag changes the hash", func(t *testing.T) {
		editable := base
		editable.Editable = true
		assert.NotEqual(t, hashEnv([]Package{base}), hashEnv([]Package{editable}))
	})

	t.Run("extras change the hash", func(t *testing.T) {
		withExtras := base
		withExtras.Extras = []string{"socks"}
		assert.NotEqual(t, hashEnv([]Package{base}), hashEnv([]Package{withExtras}))
	})
}

func TestHashEnvironmentUnlockedPlatform(t *testing.T) {
	env := &Environment{
		Packages: map[platform.Platform][]Package{
			platform.Linux64: {{Kind: KindConda, Name: "a", Location: "x", Sha256: "aa"}},
		},
	}

	// A platform without packages hashes to the empty-set fingerprint.
	empty := HashEnvironment(&Environment{}, platform.Win64)
	require.NotEmpty(t, empty)
	assert.Equal(t, empty, HashEnvironment(env, platform.Win64))
	assert.NotEqual(t, empty, HashEnvironment(env, platform.Linux64))
}
