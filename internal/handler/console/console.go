package console

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jgivc/fetchimages/internal/entity"
)

var statusLabels = map[entity.Status]string{
	entity.StatusSaved:     "SAVED",
	entity.StatusDuplicate: "DUPLICATE",
	entity.StatusGated:     "SKIPPED",
	entity.StatusFailed:    "FAILED",
}

// Reporter prints one line per outcome and a summary for the batch.
type Reporter struct {
	w   io.Writer
	log *slog.Logger
}

func NewReporter(w io.Writer, log *slog.Logger) *Reporter {
	return &Reporter{
		w:   w,
		log: log.With(slog.String("item", "ConsoleReporter")),
	}
}

func (r *Reporter) Outcome(o *entity.Outcome, total int) {
	label := statusLabels[o.Status]
	prefix := fmt.Sprintf("[%d/%d] %-9s %s", o.Index+1, total, label, o.URL)

	var line string

	switch o.Status {
	case entity.StatusSaved:
		line = fmt.Sprintf("%s -> %s (%d bytes)", prefix, o.Path, o.Size)
	case entity.StatusFailed:
		line = fmt.Sprintf("%s: %s: %s", prefix, o.Kind, o.Reason)
	default:
		line = fmt.Sprintf("%s: %s", prefix, o.Reason)
	}

	r.println(line)
}

func (r *Reporter) Finish(report *entity.BatchReport) {
	r.println(fmt.Sprintf("Done: %d saved, %d duplicate, %d skipped, %d failed in %s",
		report.Count(entity.StatusSaved),
		report.Count(entity.StatusDuplicate),
		report.Count(entity.StatusGated),
		report.Count(entity.StatusFailed),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	))

	if report.FlushErr != nil {
		r.println(fmt.Sprintf("Ledger NOT updated: %s", report.FlushErr))

		return
	}

	r.println(fmt.Sprintf("Ledger updated: %s (%d hashes)", report.LedgerLocation, report.LedgerSize))
}

func (r *Reporter) println(line string) {
	if _, err := fmt.Fprintln(r.w, line); err != nil {
		r.log.Warn("Cannot write report line", slog.Any("error", err))
	}
}
