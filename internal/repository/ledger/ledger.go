package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jgivc/fetchimages/internal/config"
)

const (
	ModeBatch Mode = iota
	ModeAppend
)

var (
	hashRegexp = regexp.MustCompile(`^[a-f\d]{64}$`)
)

// Mode selects when recorded hashes reach durable storage.
type Mode int

func (m Mode) String() string {
	return [...]string{config.LedgerModeBatch, config.LedgerModeAppend}[m]
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case config.LedgerModeBatch:
		return ModeBatch, nil
	case config.LedgerModeAppend:
		return ModeAppend, nil
	}

	return ModeBatch, fmt.Errorf("unknown ledger mode: %q", s)
}

func normalize(hash string) (string, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if !hashRegexp.MatchString(hash) {
		return "", fmt.Errorf("invalid content hash: %q", hash)
	}

	return hash, nil
}
