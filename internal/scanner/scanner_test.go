package scanner

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestExtensionsPerPlatform(t *testing.T) {
	exts := Extensions()
	assert.Contains(t, exts, ".jar")
	if runtime.GOOS == "windows" {
		assert.Contains(t, exts, ".exe")
		assert.Contains(t, exts, ".bat")
	} else {
		assert.Contains(t, exts, ".sh")
		assert.NotContains(t, exts, ".exe")
	}
}

func TestScanFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "orders.jar"))
	touch(t, filepath.Join(dir, "zeta.jar"))
	touch(t, filepath.Join(dir, "readme.txt"))
	touch(t, filepath.Join(dir, "billing", "billing.jar"))
	// nested two levels deep, must be ignored
	touch(t, filepath.Join(dir, "billing", "deep", "hidden.jar"))

	execs, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, execs, 3)

	names := make([]string, 0, len(execs))
	for _, x := range execs {
		names = append(names, x.Name)
	}
	assert.Equal(t, []string{"billing.jar", "orders.jar", "zeta.jar"}, names)

	for _, x := range execs {
		assert.Equal(t, "JAR", x.Type)
		assert.Equal(t, ".jar", x.Ext)
		if x.Name == "billing.jar" {
			assert.Equal(t, "billing", x.SubDir)
		} else {
			assert.Empty(t, x.SubDir)
		}
	}
}

func TestScanMissingFolder(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestScanNotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.jar")
	touch(t, file)
	_, err := Scan(file)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "orders.jar"))
	touch(t, filepath.Join(dir, "billing", "billing.jar"))

	path, wd, err := Resolve(dir, "orders.jar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "orders.jar"), path)
	assert.Equal(t, dir, wd)

	path, wd, err = Resolve(dir, "BILLING.JAR")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "billing", "billing.jar"), path)
	assert.Equal(t, filepath.Join(dir, "billing"), wd)

	_, _, err = Resolve(dir, "missing.jar")
	assert.Error(t, err)
}
