package readinglist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/yourusername/dayflow/internal/storage"
)

// ErrStoreBusy is returned when another invocation holds the store lock for
// longer than the lock timeout.
var ErrStoreBusy = errors.New("reading list is in use by another process")

const lockRetryDelay = 100 * time.Millisecond

// Store is the persistence the Service works against.
type Store interface {
	Load() ([]storage.Record, error)
	Save(records []storage.Record) error
	Path() string
}

// Backup receives a copy of the store content after every successful save.
type Backup interface {
	Upload(ctx context.Context, data []byte) error
}

// Service runs the load-merge-save and load-select-decay-save sequences
// under an exclusive lock on the store file.
type Service struct {
	store       Store
	selector    *Selector
	policy      MergePolicy
	lockTimeout time.Duration
	backup      Backup
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMergePolicy sets how known records follow the remote read flag.
func WithMergePolicy(p MergePolicy) ServiceOption {
	return func(s *Service) {
		s.policy = p
	}
}

// WithLockTimeout bounds how long a call waits for the store lock.
func WithLockTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.lockTimeout = d
	}
}

// WithBackup uploads the store content after each save.
func WithBackup(b Backup) ServiceOption {
	return func(s *Service) {
		s.backup = b
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger.With("component", "readinglist.service")
	}
}

// NewService creates a Service over store using selector.
func NewService(store Store, selector *Selector, opts ...ServiceOption) *Service {
	s := &Service{
		store:       store,
		selector:    selector,
		policy:      PromoteOnly,
		lockTimeout: 10 * time.Second,
		logger:      slog.Default().With("component", "readinglist.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestAndRefresh merges batch into the stored reading list and persists
// the result.
func (s *Service) IngestAndRefresh(ctx context.Context, batch []Fetched) (MergeStats, error) {
	var stats MergeStats
	err := s.withLock(ctx, func() error {
		current, err := s.store.Load()
		if err != nil {
			return err
		}

		var merged []storage.Record
		merged, stats = Merge(current, batch, s.policy)
		if err := s.save(ctx, merged); err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "Reading list refreshed",
			"fetched", len(batch),
			"inserted", stats.Inserted,
			"updated", stats.Updated,
			"total", stats.Total,
			"policy", s.policy.String())
		return nil
	})
	return stats, err
}

// ChooseNext picks the next article, decays its weight, and persists the
// change before returning it. No record is returned unless the save
// succeeded.
func (s *Service) ChooseNext(ctx context.Context) (storage.Record, error) {
	var chosen storage.Record
	err := s.withLock(ctx, func() error {
		records, err := s.store.Load()
		if err != nil {
			return err
		}

		picked, updated, err := s.selector.Choose(records)
		if errors.Is(err, ErrNoSelectableRecord) {
			return fmt.Errorf("%w: %d records, none above weight %d", err, len(records), s.selector.Floor())
		}
		if err != nil {
			return err
		}
		if err := s.save(ctx, updated); err != nil {
			return err
		}

		chosen = picked
		s.logger.InfoContext(ctx, "Article chosen",
			"id", picked.ID,
			"weight", picked.Weight)
		return nil
	})
	if err != nil {
		return storage.Record{}, err
	}
	return chosen, nil
}

// Records returns the stored reading list.
func (s *Service) Records(ctx context.Context) ([]storage.Record, error) {
	var records []storage.Record
	err := s.withLock(ctx, func() error {
		var err error
		records, err = s.store.Load()
		return err
	})
	return records, err
}

// Probability reports the chance records[i] is picked by the next ChooseNext.
func (s *Service) Probability(records []storage.Record, i int) float64 {
	return s.selector.Probability(records, i)
}

func (s *Service) save(ctx context.Context, records []storage.Record) error {
	if err := s.store.Save(records); err != nil {
		return err
	}
	if s.backup == nil {
		return nil
	}

	data, err := storage.Marshal(records)
	if err == nil {
		err = s.backup.Upload(ctx, data)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Reading list backup failed", "error", err)
	}
	return nil
}

func (s *Service) withLock(ctx context.Context, fn func() error) error {
	lock := flock.New(s.store.Path() + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: waited %s for %s", ErrStoreBusy, s.lockTimeout, lock.Path())
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: locking %s: %w", storage.ErrStoreUnavailable, lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrStoreBusy, lock.Path())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("Failed to release reading list lock", "error", err)
		}
	}()

	return fn()
}
