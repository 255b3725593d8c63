package nodeup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nodeup/nodeup/dist"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Releases(ctx context.Context) ([]dist.Release, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dist.Release), args.Error(1)
}

func releaseSet(versions ...string) []dist.Release {
	releases := make([]dist.Release, 0, len(versions))
	for _, ver := range versions {
		releases = append(releases, dist.Release{Version: ver})
	}
	return releases
}

// testInstaller builds an installer pinned to linux/64 with all host
// interaction stubbed out: no global binaries, downloads fail loudly
// unless a test provides its own fetch stub.
func testInstaller(t *testing.T, constraint string, catalog Catalog, opts ...Option) *Installer {
	t.Helper()

	base := []Option{
		WithInstallDir(filepath.Join(t.TempDir(), "runtime")),
		WithBinDir(filepath.Join(t.TempDir(), "bin")),
		WithPlatform(dist.Platform{OS: dist.Linux, Bits: 64}),
		WithCatalog(catalog),
	}

	inst, err := New(constraint, append(base, opts...)...)
	require.NoError(t, err)

	inst.probeFn = func(context.Context, string) (installation, bool) {
		return installation{}, false
	}
	inst.fetchFn = func(_ context.Context, url, _ string) error {
		t.Fatalf("unexpected download of %s", url)
		return nil
	}

	return inst
}

// fakeRuntime drops an executable stand-in for the node binary that
// reports the given version, so the local probe finds a real runtime.
func fakeRuntime(t *testing.T, dir, ver string) {
	t.Helper()

	binary := filepath.Join(dir, "bin", "node")
	require.NoError(t, os.MkdirAll(filepath.Dir(binary), 0o755))
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\necho v"+ver+"\n"), 0o755))
}

// releaseTarball builds an in-memory tarball shaped like an upstream
// release: a leading version directory over bin/node plus the bundled npm.
func releaseTarball(t *testing.T, ver string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)

	prefix := "node-v" + ver + "-linux-x64/"
	writeTarFile := func(name, contents string, mode int64) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: prefix + name,
			Mode: mode,
			Size: int64(len(contents)),
		}))
		_, err := tw.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: prefix, Typeflag: tar.TypeDir, Mode: 0o755}))
	writeTarFile("bin/node", "#!/bin/sh\necho v"+ver+"\n", 0o755)
	writeTarFile("lib/node_modules/npm/bin/npm-cli.js", "// npm cli\n", 0o644)
	writeTarFile("lib/node_modules/npm/bin/npx-cli.js", "// npx cli\n", 0o644)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     prefix + "bin/npm",
		Typeflag: tar.TypeSymlink,
		Linkname: "../lib/node_modules/npm/bin/npm-cli.js",
	}))

	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	t.Run("empty constraint accepts anything", func(t *testing.T) {
		inst, err := New("   ")
		require.NoError(t, err)
		assert.True(t, inst.satisfies("0.0.1"))
		assert.True(t, inst.satisfies("99.0.0"))
	})

	t.Run("invalid constraint", func(t *testing.T) {
		_, err := New(">=")
		assert.Error(t, err)
	})
}

func TestDecide(t *testing.T) {
	global := installation{path: "/usr/bin/node", version: "6.2.0"}
	npm := installation{path: "/usr/bin/npm", version: "3.8.0"}

	tests := []struct {
		name       string
		forceLocal bool
		global     bool
		npm        bool
		expected   InstallDecision
	}{
		{"satisfying global with npm is reused", false, true, true, UseExistingGlobal},
		{"forced local ignores the global", true, true, true, InstallLocal},
		{"no global on the path", false, false, false, InstallLocal},
		{"global without companion npm", false, true, false, InstallLocal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var opts []Option
			if test.forceLocal {
				opts = append(opts, WithForceLocal())
			}

			inst := testInstaller(t, "6.*", new(mockCatalog), opts...)
			inst.globalOK, inst.npmOK = test.global, test.npm
			inst.global, inst.npm = global, npm

			require.NoError(t, inst.decide(context.Background()))
			assert.Equal(t, test.expected, inst.decision)
		})
	}

	t.Run("unsatisfying global forces a local install", func(t *testing.T) {
		inst := testInstaller(t, ">=8.0.0", new(mockCatalog))
		inst.globalOK, inst.npmOK = true, true
		inst.global, inst.npm = global, npm

		require.NoError(t, inst.decide(context.Background()))
		assert.Equal(t, InstallLocal, inst.decision)
	})
}

func TestRunInstallsLocally(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("Releases", mock.Anything).
		Return(releaseSet("7.0.0", "6.11.3", "6.2.0", "0.12.18"), nil).
		Once()

	inst := testInstaller(t, "6.*", catalog)
	inst.fetchFn = func(_ context.Context, url, destination string) error {
		assert.Equal(t, "https://nodejs.org/dist/v6.11.3/node-v6.11.3-linux-x64.tar.gz", url)
		return os.WriteFile(destination, releaseTarball(t, "6.11.3"), 0o644)
	}

	require.NoError(t, inst.Run(context.Background()))
	assert.Equal(t, InstallLocal, inst.Decision())
	assert.Equal(t, "6.11.3", inst.Resolved())
	catalog.AssertExpectations(t)

	// the runtime landed stripped of the tarball's leading directory
	binary := filepath.Join(inst.dir, "bin", "node")
	info, err := os.Stat(binary)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100)

	// the archive itself is cleaned up after extraction
	_, err = os.Stat(filepath.Join(inst.dir, "node-v6.11.3-linux-x64.tar.gz"))
	assert.True(t, os.IsNotExist(err))

	// entry points dispatch to the local install, npm through node
	wrapper, err := os.ReadFile(filepath.Join(inst.binDir, "node"))
	require.NoError(t, err)
	assert.Contains(t, string(wrapper), binary)

	npmWrapper, err := os.ReadFile(filepath.Join(inst.binDir, "npm"))
	require.NoError(t, err)
	assert.Contains(t, string(npmWrapper), "npm-cli.js")
	assert.Contains(t, string(npmWrapper), binary)
}

func TestRunReusesSatisfyingLocal(t *testing.T) {
	catalog := new(mockCatalog)

	inst := testInstaller(t, "6.*", catalog)
	fakeRuntime(t, inst.dir, "6.11.3")

	require.NoError(t, inst.Run(context.Background()))
	assert.Equal(t, UseExistingLocal, inst.Decision())
	assert.Equal(t, "6.11.3", inst.Resolved())

	// no download, not even a catalog lookup
	catalog.AssertNotCalled(t, "Releases", mock.Anything)
}

func TestRunReplacesUnsatisfyingLocal(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("Releases", mock.Anything).
		Return(releaseSet("6.11.3", "4.8.1"), nil).
		Once()

	inst := testInstaller(t, "6.*", catalog)
	fakeRuntime(t, inst.dir, "4.8.1")
	inst.fetchFn = func(_ context.Context, _, destination string) error {
		return os.WriteFile(destination, releaseTarball(t, "6.11.3"), 0o644)
	}

	require.NoError(t, inst.Run(context.Background()))
	assert.Equal(t, InstallLocal, inst.Decision())
	assert.Equal(t, "6.11.3", inst.Resolved())
	catalog.AssertExpectations(t)
}

func TestRunReusesGlobal(t *testing.T) {
	catalog := new(mockCatalog)

	inst := testInstaller(t, "6.*", catalog)
	inst.probeFn = func(_ context.Context, name string) (installation, bool) {
		switch name {
		case "node":
			return installation{path: "/usr/local/bin/node", version: "6.2.0"}, true
		case "npm":
			return installation{path: "/usr/local/bin/npm", version: "3.8.0"}, true
		}
		return installation{}, false
	}

	require.NoError(t, inst.Run(context.Background()))
	assert.Equal(t, UseExistingGlobal, inst.Decision())
	assert.Equal(t, "6.2.0", inst.Resolved())
	catalog.AssertNotCalled(t, "Releases", mock.Anything)

	wrapper, err := os.ReadFile(filepath.Join(inst.binDir, "node"))
	require.NoError(t, err)
	assert.Contains(t, string(wrapper), "/usr/local/bin/node")

	npmWrapper, err := os.ReadFile(filepath.Join(inst.binDir, "npm"))
	require.NoError(t, err)
	assert.Contains(t, string(npmWrapper), "/usr/local/bin/npm")
}

func TestRunFailures(t *testing.T) {
	t.Run("no release matches", func(t *testing.T) {
		catalog := new(mockCatalog)
		catalog.On("Releases", mock.Anything).
			Return(releaseSet("4.8.1", "0.12.18"), nil).
			Once()

		inst := testInstaller(t, ">=99.0.0", catalog)

		err := inst.Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoMatchingVersion)
		assert.Contains(t, err.Error(), ">=99.0.0")
	})

	t.Run("catalog unreachable", func(t *testing.T) {
		catalog := new(mockCatalog)
		catalog.On("Releases", mock.Anything).
			Return(nil, errors.New("connection refused")).
			Once()

		inst := testInstaller(t, "6.*", catalog)

		err := inst.Run(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransferFailure)

		// a failed resolve leaves no entry points behind
		_, statErr := os.Stat(filepath.Join(inst.binDir, "node"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("malformed catalog entries are skipped, not fatal", func(t *testing.T) {
		catalog := new(mockCatalog)
		catalog.On("Releases", mock.Anything).
			Return(releaseSet("nonsense", "6.2.0", "1.2.3.4"), nil).
			Once()

		inst := testInstaller(t, "6.*", catalog)
		inst.fetchFn = func(_ context.Context, _, destination string) error {
			return os.WriteFile(destination, releaseTarball(t, "6.2.0"), 0o644)
		}

		require.NoError(t, inst.Run(context.Background()))
		assert.Equal(t, "6.2.0", inst.Resolved())
	})
}

func TestInstallDecisionString(t *testing.T) {
	assert.Equal(t, "undecided", Undecided.String())
	assert.Equal(t, "use existing global", UseExistingGlobal.String())
	assert.Equal(t, "use existing local", UseExistingLocal.String())
	assert.Equal(t, "install local", InstallLocal.String())
}
