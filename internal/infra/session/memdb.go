package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/bryanwahyu/radiology-analyzer/internal/domain/report"
)

const table = "analysis"

// record is what goes into memdb. Objects in memdb must not be modified
// after insert, so results are copied in and out.
type record struct {
	ID        string
	ExpiresAt int64  // unix nano
	ExpiryKey string // ExpiresAt zero padded, sorts like the number
	Result    report.AnalysisResult
}

// Store keeps analysis results in memory until they expire. Nothing is
// written to disk.
type Store struct {
	db  *memdb.MemDB
	ttl time.Duration
	now func() time.Time
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			table: {
				Name: table,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"expiry": {
						Name:    "expiry",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "ExpiryKey"},
					},
				},
			},
		},
	}
}

func New(ttl time.Duration, now func() time.Time) (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, ttl: ttl, now: now}, nil
}

func (s *Store) Save(_ context.Context, r *report.AnalysisResult) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("analysis id is required")
	}
	expires := s.now().Add(s.ttl).UnixNano()
	rec := &record{
		ID:        string(r.ID),
		ExpiresAt: expires,
		ExpiryKey: fmt.Sprintf("%020d", expires),
		Result:    copyResult(r),
	}

	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(table, rec); err != nil {
		return fmt.Errorf("insert analysis %s: %w", r.ID, err)
	}
	txn.Commit()
	return nil
}

func (s *Store) Get(_ context.Context, id report.AnalysisID) (*report.AnalysisResult, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(table, "id", string(id))
	if err != nil {
		return nil, fmt.Errorf("lookup analysis %s: %w", id, err)
	}
	if raw == nil {
		return nil, report.ErrNotFound
	}
	rec := raw.(*record)
	if rec.ExpiresAt <= s.now().UnixNano() {
		return nil, report.ErrNotFound
	}
	res := copyResult(&rec.Result)
	return &res, nil
}

func (s *Store) Delete(_ context.Context, id report.AnalysisID) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(table, "id", string(id))
	if err != nil {
		return fmt.Errorf("lookup analysis %s: %w", id, err)
	}
	if raw == nil {
		return report.ErrNotFound
	}
	if err := txn.Delete(table, raw); err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	txn.Commit()
	return nil
}

// Len returns the number of stored results, expired ones included.
func (s *Store) Len() int {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(table, "id")
	if err != nil {
		return 0
	}
	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n
}

// Ping runs a read transaction; used by the health check.
func (s *Store) Ping(_ context.Context) error {
	txn := s.db.Txn(false)
	defer txn.Abort()
	_, err := txn.First(table, "id")
	return err
}

// PurgeExpired deletes every result whose TTL has passed and returns how many.
func (s *Store) PurgeExpired() (int, error) {
	now := s.now().UnixNano()

	txn := s.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound(table, "expiry", "")
	if err != nil {
		return 0, err
	}
	var expired []*record
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*record)
		if rec.ExpiresAt > now {
			break
		}
		expired = append(expired, rec)
	}
	for _, rec := range expired {
		if err := txn.Delete(table, rec); err != nil {
			return 0, err
		}
	}
	txn.Commit()
	return len(expired), nil
}

// StartCleanup purges expired results every interval until ctx is done.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired()
			if err != nil {
				logger.Error("purge expired analyses", "err", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged expired analyses", "count", n)
			}
		}
	}
}

func copyResult(r *report.AnalysisResult) report.AnalysisResult {
	out := *r
	if r.Sections != nil {
		out.Sections = append([]report.Section(nil), r.Sections...)
	}
	return out
}
