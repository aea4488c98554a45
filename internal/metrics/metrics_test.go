package metrics

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jgivc/fetchimages/internal/entity"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetchimages.prom")
	r := NewRecorder(path, slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})))

	outcomes := []*entity.Outcome{
		{Status: entity.StatusSaved, Size: 100, Elapsed: 10 * time.Millisecond},
		{Status: entity.StatusSaved, Size: 23, Elapsed: 20 * time.Millisecond},
		{Status: entity.StatusDuplicate, Kind: entity.KindDuplicate},
		{Status: entity.StatusFailed, Kind: entity.KindNetwork},
	}
	for _, o := range outcomes {
		r.Outcome(o, len(outcomes))
	}

	r.Finish(&entity.BatchReport{
		Outcomes:   outcomes,
		FinishedAt: time.Unix(1700000000, 0),
		LedgerSize: 5,
	})

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	require.Contains(t, text, `fetchimages_outcomes_total{kind="none",status="saved"} 2`)
	require.Contains(t, text, `fetchimages_outcomes_total{kind="duplicate",status="duplicate"} 1`)
	require.Contains(t, text, `fetchimages_outcomes_total{kind="network",status="failed"} 1`)
	require.Contains(t, text, "fetchimages_bytes_written_total 123")
	require.Contains(t, text, "fetchimages_url_duration_seconds_count 4")
	require.Contains(t, text, "fetchimages_ledger_hashes 5")
	require.Contains(t, text, "fetchimages_last_batch_timestamp_seconds 1.7e+09")
}

func TestRecorderWithoutPath(t *testing.T) {
	r := NewRecorder("", slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})))
	r.Finish(&entity.BatchReport{LedgerSize: 1})

	mfs, err := r.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}
