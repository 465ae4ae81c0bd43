package installer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMember struct {
	name string
	mode fs.FileMode
	body string
}

func makeTarGz(t *testing.T, members []testMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{Name: m.name, Mode: int64(m.mode.Perm()), Size: int64(len(m.body)), Typeflag: tar.TypeReg}
		if m.mode.IsDir() {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !m.mode.IsDir() {
			_, err := tw.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func makeZip(t *testing.T, members []testMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		hdr := &zip.FileHeader{Name: m.name, Method: zip.Deflate}
		hdr.SetMode(m.mode)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		if !m.mode.IsDir() {
			_, err = w.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// dfxArchiveMembers is the layout of a dfx release: one directory holding the binary and its license.
func dfxArchiveMembers(binary string) []testMember {
	base := TarballBasename()
	return []testMember{
		{name: base + "/", mode: fs.ModeDir | 0o755},
		{name: base + "/LICENSE", mode: 0o644, body: "license text"},
		{name: base + "/dfx", mode: 0o755, body: binary},
	}
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractArchiveFormats(t *testing.T) {
	tests := map[string][]byte{
		"dfx.tar.gz": makeTarGz(t, dfxArchiveMembers("#!/bin/sh\necho dfx\n")),
		"dfx.zip":    makeZip(t, dfxArchiveMembers("#!/bin/sh\necho dfx\n")),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			src := writeTemp(t, name, data)
			dest := t.TempDir()

			format, err := FormatFromPath(src)
			require.NoError(t, err)
			require.NoError(t, ExtractArchiveAs(src, format, dest))

			bin := filepath.Join(dest, TarballBasename(), "dfx")
			content, err := os.ReadFile(bin)
			require.NoError(t, err)
			assert.Equal(t, "#!/bin/sh\necho dfx\n", string(content))

			info, err := os.Stat(bin)
			require.NoError(t, err)
			assert.Equal(t, fs.FileMode(0o755), info.Mode().Perm())

			license, err := os.Stat(filepath.Join(dest, TarballBasename(), "LICENSE"))
			require.NoError(t, err)
			assert.Equal(t, fs.FileMode(0o644), license.Mode().Perm())
		})
	}
}

func TestExtractArchiveRejectsTraversal(t *testing.T) {
	src := writeTemp(t, "evil.tar.gz", makeTarGz(t, []testMember{
		{name: "../escaped", mode: 0o644, body: "nope"},
	}))
	dest := filepath.Join(t.TempDir(), "dest")
	require.NoError(t, os.Mkdir(dest, 0o755))

	err := ExtractArchiveAs(src, "tar.gz", dest)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escaped"))
}

func TestExtractArchiveUnsupportedFormat(t *testing.T) {
	_, err := FormatFromPath(writeTemp(t, "dfx.rar", []byte("x")))
	assert.ErrorContains(t, err, "unsupported archive format")

	err = ExtractArchiveAs(writeTemp(t, "dfx.bin", []byte("x")), "rar", t.TempDir())
	assert.Error(t, err)
}

func TestExtractFileBySuffix(t *testing.T) {
	src := writeTemp(t, "dfxvm.tar.gz", makeTarGz(t, []testMember{
		{name: "dfxvm-x86_64/README.md", mode: 0o644, body: "readme"},
		{name: "dfxvm-x86_64/dfxvm", mode: 0o755, body: "new manager"},
	}))
	dest := filepath.Join(t.TempDir(), "dfxvm-init-self-update")

	require.NoError(t, ExtractFile(src, "tar.gz", "dfxvm", dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new manager", string(content))
}

func TestExtractFileMissingEntry(t *testing.T) {
	src := writeTemp(t, "dfxvm.tar.gz", makeTarGz(t, []testMember{
		{name: "README.md", mode: 0o644, body: "readme"},
	}))
	err := ExtractFile(src, "tar.gz", "dfxvm", filepath.Join(t.TempDir(), "out"))
	assert.ErrorContains(t, err, `no entry ending in "dfxvm"`)
}
