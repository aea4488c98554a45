package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jgivc/fetchimages/internal/common"
	"github.com/jgivc/fetchimages/internal/entity"
	"github.com/jgivc/fetchimages/internal/util"
)

const (
	imageMediaTypePrefix = "image/"
	shortHashLength      = 12
)

type HTTPClient interface {
	Probe(ctx context.Context, rawURL string) (*entity.Metadata, error)
	Fetch(ctx context.Context, rawURL string, limit int64) ([]byte, error)
}

type Store interface {
	EnsureDir() error
	Save(name string, data []byte) (string, error)
}

type Ledger interface {
	Contains(ctx context.Context, hash string) (bool, error)
	Record(ctx context.Context, hash string) error
	Flush(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Location() string
}

// Observer is told about every outcome as soon as it is known, and about the finished batch.
type Observer interface {
	Outcome(o *entity.Outcome, total int)
	Finish(report *entity.BatchReport)
}

type FetchService struct {
	client    HTTPClient
	store     Store
	ledger    Ledger
	maxSize   int64
	observers []Observer
	log       *slog.Logger
}

func NewFetchService(client HTTPClient, store Store, ledger Ledger, maxSize int64, log *slog.Logger, observers ...Observer) *FetchService {
	return &FetchService{
		client:    client,
		store:     store,
		ledger:    ledger,
		maxSize:   maxSize,
		observers: observers,
		log:       log.With(slog.String("item", "FetchService")),
	}
}

// FetchAll processes urls one by one in input order and returns one outcome per URL.
// Only a missing output directory aborts the batch. The ledger is flushed once at the end,
// also when ctx is canceled; a flush failure is returned along with the full report.
func (s *FetchService) FetchAll(ctx context.Context, urls []string) (*entity.BatchReport, error) {
	report := &entity.BatchReport{
		ID:             uuid.NewString(),
		StartedAt:      time.Now(),
		Outcomes:       make([]*entity.Outcome, 0, len(urls)),
		LedgerLocation: s.ledger.Location(),
	}

	log := s.log.With(slog.String("batch_id", report.ID))
	log.Info("Start batch", slog.Int("urls", len(urls)))

	if err := s.store.EnsureDir(); err != nil {
		log.Error("Cannot prepare output directory", slog.Any("error", err))

		return nil, err
	}

	for i, rawURL := range urls {
		o := s.fetchOne(ctx, i, rawURL, log)
		report.Outcomes = append(report.Outcomes, o)

		for _, obs := range s.observers {
			obs.Outcome(o, len(urls))
		}
	}

	flushCtx := context.WithoutCancel(ctx)
	if err := s.ledger.Flush(flushCtx); err != nil {
		log.Error("Cannot flush ledger", slog.String("ledger", report.LedgerLocation), slog.Any("error", err))
		report.FlushErr = fmt.Errorf("cannot flush ledger %s: %w", report.LedgerLocation, err)
	}

	if n, err := s.ledger.Len(flushCtx); err != nil {
		log.Warn("Cannot count ledger hashes", slog.Any("error", err))
	} else {
		report.LedgerSize = n
	}

	report.FinishedAt = time.Now()

	log.Info("Batch done",
		slog.Int(string(entity.StatusSaved), report.Count(entity.StatusSaved)),
		slog.Int(string(entity.StatusDuplicate), report.Count(entity.StatusDuplicate)),
		slog.Int(string(entity.StatusGated), report.Count(entity.StatusGated)),
		slog.Int(string(entity.StatusFailed), report.Count(entity.StatusFailed)),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)

	for _, obs := range s.observers {
		obs.Finish(report)
	}

	return report, report.FlushErr
}

func (s *FetchService) fetchOne(ctx context.Context, index int, rawURL string, log *slog.Logger) (o *entity.Outcome) {
	start := time.Now()
	o = &entity.Outcome{Index: index, URL: rawURL}
	log = log.With(slog.Int("index", index), slog.String("url", rawURL))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while fetching", slog.Any("panic", r))
			setError(o, fmt.Errorf("%w: panic: %v", common.ErrUnexpected, r))
		}

		o.Elapsed = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		setError(o, fmt.Errorf("%w: %w", common.ErrCanceled, err))

		return o
	}

	if err := s.process(ctx, o, strings.TrimSpace(rawURL), log); err != nil {
		setError(o, err)

		switch o.Status {
		case entity.StatusDuplicate, entity.StatusGated:
			log.Info("Skip url", slog.String("status", string(o.Status)), slog.String("reason", o.Reason))
		default:
			log.Warn("Cannot fetch url", slog.String("kind", string(o.Kind)), slog.Any("error", err))
		}

		return o
	}

	o.Status = entity.StatusSaved
	log.Info("Saved", slog.String("path", o.Path), slog.Int64("size", o.Size))

	return o
}

func (s *FetchService) process(ctx context.Context, o *entity.Outcome, rawURL string, log *slog.Logger) error {
	md, err := s.client.Probe(ctx, rawURL)
	if err != nil {
		return err
	}

	if md.URL != "" && md.URL != rawURL {
		log.Debug("Redirected", slog.String("final_url", md.URL))
	}

	if err := s.gate(md); err != nil {
		return err
	}

	data, err := s.client.Fetch(ctx, rawURL, s.maxSize)
	if err != nil {
		return err
	}

	o.Hash = util.ContentHash(data)
	o.Size = int64(len(data))

	seen, err := s.ledger.Contains(ctx, o.Hash)
	if err != nil {
		return fmt.Errorf("%w: cannot check ledger: %w", common.ErrUnexpected, err)
	}

	if seen {
		return fmt.Errorf("%w: sha256 %s is already in the ledger", common.ErrDuplicateContent, o.Hash[:shortHashLength])
	}

	name := DeriveFilename(md.Filename, rawURL)

	path, err := s.store.Save(name, data)
	if err != nil {
		return err
	}
	o.Path = path

	// The file is on disk either way; a record error only affects durability before Flush.
	if err := s.ledger.Record(ctx, o.Hash); err != nil {
		log.Warn("Cannot record hash", slog.String("hash", o.Hash), slog.Any("error", err))
	}

	return nil
}

func (s *FetchService) gate(md *entity.Metadata) error {
	if !strings.HasPrefix(md.MediaType, imageMediaTypePrefix) {
		contentType := md.ContentType
		if contentType == "" {
			contentType = "none"
		}

		return fmt.Errorf("%w: content type %q is not an image", common.ErrGateRejected, contentType)
	}

	if md.HasLength() && md.ContentLength >= s.maxSize {
		return fmt.Errorf("%w: declared size %d bytes is not below %d", common.ErrGateRejected, md.ContentLength, s.maxSize)
	}

	return nil
}

func setError(o *entity.Outcome, err error) {
	o.Err = err
	o.Reason = err.Error()

	switch {
	case errors.Is(err, common.ErrCanceled), errors.Is(err, context.Canceled):
		o.Status, o.Kind = entity.StatusFailed, entity.KindCanceled
	case errors.Is(err, common.ErrDuplicateContent):
		o.Status, o.Kind = entity.StatusDuplicate, entity.KindDuplicate
	case errors.Is(err, common.ErrGateRejected):
		o.Status, o.Kind = entity.StatusGated, entity.KindGate
	case errors.Is(err, common.ErrNetwork):
		o.Status, o.Kind = entity.StatusFailed, entity.KindNetwork
	case errors.Is(err, common.ErrFilesystem):
		o.Status, o.Kind = entity.StatusFailed, entity.KindFilesystem
	default:
		o.Status, o.Kind = entity.StatusFailed, entity.KindUnexpected
	}
}
