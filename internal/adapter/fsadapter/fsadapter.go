package fsadapter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jgivc/fetchimages/internal/common"
	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	// maxCollisionIndex bounds the suffix search for one name.
	maxCollisionIndex = 100_000
	maxSaveAttempts   = 10
)

type fsAdapter struct {
	fs       afero.Fs
	dir      string
	reserved map[string]struct{}

	log *slog.Logger
}

// NewFSAdapter stores files in dir on the OS filesystem. Names in reserved are never handed out.
func NewFSAdapter(dir string, reserved []string, log *slog.Logger) *fsAdapter {
	return NewFSAdapterWithFS(afero.NewOsFs(), dir, reserved, log)
}

func NewFSAdapterWithFS(fs afero.Fs, dir string, reserved []string, log *slog.Logger) *fsAdapter {
	reservedMap := make(map[string]struct{}, len(reserved))
	for _, name := range reserved {
		reservedMap[name] = struct{}{}
	}

	return &fsAdapter{
		fs:       fs,
		dir:      dir,
		reserved: reservedMap,
		log:      log.With(slog.String("item", "FSAdapter")),
	}
}

func (a *fsAdapter) EnsureDir() error {
	if err := a.fs.MkdirAll(a.dir, dirPerm); err != nil {
		return fmt.Errorf("%w %s: %w", common.ErrOutputDir, a.dir, err)
	}

	return nil
}

func (a *fsAdapter) Exists(path string) (bool, error) {
	return afero.Exists(a.fs, path)
}

// ResolvePath returns the first free path for name inside the output directory:
// name itself, then base_1.ext, base_2.ext and so on.
func (a *fsAdapter) ResolvePath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid file name %q", common.ErrFilesystem, name)
	}

	base, ext := splitExt(name)

	for i := 0; i <= maxCollisionIndex; i++ {
		candidate := name
		if i > 0 {
			candidate = base + "_" + strconv.Itoa(i) + ext
		}

		if _, isReserved := a.reserved[candidate]; isReserved {
			continue
		}

		path := filepath.Join(a.dir, candidate)
		exists, err := a.Exists(path)
		if err != nil {
			return "", fmt.Errorf("%w: cannot stat %s: %w", common.ErrFilesystem, path, err)
		}

		if !exists {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: no free name for %q", common.ErrFilesystem, name)
}

// Save writes data under the resolved path for name and returns that path.
// The file is created exclusively; if another writer takes the path first, resolution runs again.
func (a *fsAdapter) Save(name string, data []byte) (string, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		path, err := a.ResolvePath(name)
		if err != nil {
			return "", err
		}

		err = a.writeExclusive(path, data)
		if err == nil {
			a.log.Debug("File saved", slog.String("path", path), slog.Int("size", len(data)))

			return path, nil
		}

		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: cannot write %s: %w", common.ErrFilesystem, path, err)
		}

		a.log.Warn("Path was taken while saving, resolve again", slog.String("path", path))
	}

	return "", fmt.Errorf("%w: cannot save %q after %d attempts", common.ErrFilesystem, name, maxSaveAttempts)
}

func (a *fsAdapter) writeExclusive(path string, data []byte) error {
	f, err := a.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		a.fs.Remove(path)

		return err
	}

	if err := f.Close(); err != nil {
		a.fs.Remove(path)

		return err
	}

	return nil
}

// splitExt splits at the last dot. Leading dots belong to the base, so ".png" has no extension.
func splitExt(name string) (string, string) {
	ext := filepath.Ext(strings.TrimLeft(name, "."))

	return name[:len(name)-len(ext)], ext
}
