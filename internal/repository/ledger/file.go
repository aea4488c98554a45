package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

const filePerm = 0o644

// fileLedger keeps the hash set in memory and persists it as one hex digest per line.
type fileLedger struct {
	fs     afero.Fs
	path   string
	mode   Mode
	hashes map[string]struct{}

	// needsNewline is set when the loaded file does not end with a newline.
	needsNewline bool

	log *slog.Logger
}

func NewFileLedger(fs afero.Fs, path string, mode Mode, log *slog.Logger) (*fileLedger, error) {
	l := &fileLedger{
		fs:     fs,
		path:   path,
		mode:   mode,
		hashes: make(map[string]struct{}),
		log:    log.With(slog.String("item", "FileLedger"), slog.String("path", path), slog.String("mode", mode.String())),
	}

	if err := l.load(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *fileLedger) load() error {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.log.Info("Ledger file is not found, start empty")

			return nil
		}

		return fmt.Errorf("cannot read ledger %s: %w", l.path, err)
	}

	var skipped int
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		hash, err := normalize(line)
		if err != nil {
			skipped++

			continue
		}

		l.hashes[hash] = struct{}{}
	}

	l.needsNewline = len(data) > 0 && !bytes.HasSuffix(data, []byte("\n"))

	if skipped > 0 {
		l.log.Warn("Skip invalid ledger lines", slog.Int("count", skipped))
	}
	l.log.Info("Ledger loaded", slog.Int("hashes", len(l.hashes)))

	return nil
}

func (l *fileLedger) Contains(_ context.Context, hash string) (bool, error) {
	hash, err := normalize(hash)
	if err != nil {
		return false, err
	}

	_, exists := l.hashes[hash]

	return exists, nil
}

func (l *fileLedger) Record(_ context.Context, hash string) error {
	hash, err := normalize(hash)
	if err != nil {
		return err
	}

	if _, exists := l.hashes[hash]; exists {
		return nil
	}

	// Kept in memory even if the append fails, so Flush still persists it.
	l.hashes[hash] = struct{}{}

	if l.mode == ModeAppend {
		return l.append(hash)
	}

	return nil
}

func (l *fileLedger) append(hash string) error {
	f, err := l.fs.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("cannot open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	line := hash + "\n"
	if l.needsNewline {
		line = "\n" + line
	}

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("cannot append to ledger %s: %w", l.path, err)
	}
	l.needsNewline = false

	return nil
}

// Flush replaces the ledger file with the full in-memory set.
func (l *fileLedger) Flush(_ context.Context) error {
	hashes := make([]string, 0, len(l.hashes))
	for hash := range l.hashes {
		hashes = append(hashes, hash)
	}
	slices.Sort(hashes)

	var buf bytes.Buffer
	for _, hash := range hashes {
		buf.WriteString(hash)
		buf.WriteByte('\n')
	}

	// The temp name is random and created exclusively.
	tmp, err := afero.TempFile(l.fs, filepath.Dir(l.path), "."+filepath.Base(l.path)+"-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file for ledger %s: %w", l.path, err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(buf.Bytes())
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		l.fs.Remove(tmpPath)

		return fmt.Errorf("cannot write ledger %s: %w", tmpPath, err)
	}

	if err := l.fs.Chmod(tmpPath, filePerm); err != nil {
		l.log.Warn("Cannot set ledger permissions", slog.String("tmp", tmpPath), slog.Any("error", err))
	}

	if err := l.fs.Rename(tmpPath, l.path); err != nil {
		l.fs.Remove(tmpPath)

		return fmt.Errorf("cannot replace ledger %s: %w", l.path, err)
	}
	l.needsNewline = false

	l.log.Info("Ledger flushed", slog.Int("hashes", len(hashes)))

	return nil
}

func (l *fileLedger) Len(_ context.Context) (int, error) {
	return len(l.hashes), nil
}

func (l *fileLedger) Location() string {
	return l.path
}
