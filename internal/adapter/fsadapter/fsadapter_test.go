package fsadapter

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jgivc/fetchimages/internal/common"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testDir = "/out"

func newTestAdapter(t *testing.T, fs afero.Fs, reserved ...string) *fsAdapter {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	a := NewFSAdapterWithFS(fs, testDir, reserved, log)
	require.NoError(t, a.EnsureDir())

	return a
}

func TestResolvePath(t *testing.T) {
	testCases := []struct {
		name     string
		existing []string
		reserved []string
		file     string
		expected string
	}{
		{
			name:     "free name",
			file:     "a.png",
			expected: "a.png",
		},
		{
			name:     "first collision",
			existing: []string{"a.png"},
			file:     "a.png",
			expected: "a_1.png",
		},
		{
			name:     "lowest free index",
			existing: []string{"a.png", "a_1.png", "a_3.png"},
			file:     "a.png",
			expected: "a_2.png",
		},
		{
			name:     "no extension",
			existing: []string{"photo"},
			file:     "photo",
			expected: "photo_1",
		},
		{
			name:     "split at last dot",
			existing: []string{"archive.tar.gz"},
			file:     "archive.tar.gz",
			expected: "archive.tar_1.gz",
		},
		{
			name:     "dotfile",
			existing: []string{".png"},
			file:     ".png",
			expected: ".png_1",
		},
		{
			name:     "dotfile with extension",
			existing: []string{".hidden.png"},
			file:     ".hidden.png",
			expected: ".hidden_1.png",
		},
		{
			name:     "reserved name",
			reserved: []string{"hashes.txt"},
			file:     "hashes.txt",
			expected: "hashes_1.txt",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			a := newTestAdapter(t, fs, tc.reserved...)

			for _, name := range tc.existing {
				require.NoError(t, afero.WriteFile(fs, filepath.Join(testDir, name), []byte("x"), 0o644))
			}

			path, err := a.ResolvePath(tc.file)
			require.NoError(t, err)
			require.Equal(t, filepath.Join(testDir, tc.expected), path)
		})
	}
}

func TestResolvePathRejectsUnsafeNames(t *testing.T) {
	a := newTestAdapter(t, afero.NewMemMapFs())

	for _, name := range []string{"", ".", "..", "../x.png", `a\b.png`} {
		_, err := a.ResolvePath(name)
		require.ErrorIs(t, err, common.ErrFilesystem, name)
	}
}

func TestSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	a := newTestAdapter(t, fs)

	first := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	second := []byte("another payload")

	path1, err := a.Save("a.png", first)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(testDir, "a.png"), path1)

	path2, err := a.Save("a.png", second)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(testDir, "a_1.png"), path2)

	data, err := afero.ReadFile(fs, path1)
	require.NoError(t, err)
	require.Equal(t, first, data)

	data, err = afero.ReadFile(fs, path2)
	require.NoError(t, err)
	require.Equal(t, second, data)
}

func TestSaveReadOnly(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, base.MkdirAll(testDir, 0o755))

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	a := NewFSAdapterWithFS(afero.NewReadOnlyFs(base), testDir, nil, log)

	_, err := a.Save("a.png", []byte("x"))
	require.ErrorIs(t, err, common.ErrFilesystem)
}

func TestEnsureDirFails(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	a := NewFSAdapterWithFS(afero.NewReadOnlyFs(afero.NewMemMapFs()), testDir, nil, log)

	require.ErrorIs(t, a.EnsureDir(), common.ErrOutputDir)
}
