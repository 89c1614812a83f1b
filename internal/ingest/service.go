package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scangate/internal/attendance"
	"scangate/internal/queue"
)

var (
	// ErrEmptyCode rejects blank manual input before it enters the pipeline.
	ErrEmptyCode = errors.New("empty scan code")
	// ErrDebounced means the event was a repeat and was dropped with no outcome.
	ErrDebounced = errors.New("duplicate scan dropped")
)

// Resolver maps a raw scanned code to a student identity.
type Resolver interface {
	ResolveStudent(ctx context.Context, code string) (attendance.Student, error)
}

// RecordStore is the authoritative attendance store. Insert must fail with
// attendance.ErrDuplicateRecord when a record for the student-day already
// exists; that constraint, not this package, serializes concurrent scans.
type RecordStore interface {
	FindToday(ctx context.Context, studentID string, day time.Time) (*attendance.Record, error)
	Insert(ctx context.Context, rec attendance.Record) (attendance.Record, error)
	CountToday(ctx context.Context, day time.Time) (present, late int, err error)
}

// Config tunes the pipeline.
type Config struct {
	CutoffHour     int
	CutoffMinute   int
	DebounceWindow time.Duration
	HistorySize    int
	StoreTimeout   time.Duration
}

// Service runs scan events through resolve, classify and record, and keeps
// the operator-facing history and stats. Events from the camera decoder
// and the manual entry form go through the same entry point.
type Service struct {
	resolver Resolver
	store    RecordStore
	q        queue.Queue
	log      *zap.Logger
	cfg      Config

	debounce *Debouncer
	history  *History
	tally    *Tally
}

// NewService wires the pipeline. q may be nil when no feedback consumer runs.
func NewService(resolver Resolver, store RecordStore, q queue.Queue, log *zap.Logger, cfg Config) *Service {
	if cfg.CutoffHour == 0 && cfg.CutoffMinute == 0 {
		cfg.CutoffHour, cfg.CutoffMinute = 8, 30
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		resolver: resolver,
		store:    store,
		q:        q,
		log:      log,
		cfg:      cfg,
		debounce: NewDebouncer(cfg.DebounceWindow),
		history:  NewHistory(cfg.HistorySize),
		tally:    NewTally(),
	}
}

// Seed primes today's stats from the store. Call once at startup.
func (s *Service) Seed(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	present, late, err := s.store.CountToday(cctx, attendance.DayOf(time.Now()))
	if err != nil {
		return err
	}
	s.tally.Replace(present, late)
	return nil
}

// Process runs one scan event through the pipeline and returns its outcome.
// ErrEmptyCode and ErrDebounced mean no outcome was produced; every other
// path, including store failures, yields an outcome so the operator sees
// what happened to each physical scan.
func (s *Service) Process(ctx context.Context, rawCode string, at time.Time) (Outcome, error) {
	code := strings.TrimSpace(rawCode)
	if code == "" {
		return Outcome{}, ErrEmptyCode
	}
	if at.IsZero() {
		at = time.Now()
	}

	if !s.debounce.ShouldProcess(code, at) {
		debounceDropped.Inc()
		s.log.Debug("scan debounced", zap.String("code", code))
		return Outcome{}, ErrDebounced
	}

	out := s.classify(ctx, code, at)

	s.history.Push(out)
	outcomesTotal.WithLabelValues(string(out.Status)).Inc()
	if out.Status == OutcomePresent || out.Status == OutcomeLate {
		s.refreshStats(ctx, at)
	}
	s.publish(ctx, out)
	return out, nil
}

// classify walks one event through resolve, the existing-record check,
// the cutoff decision and the insert.
func (s *Service) classify(ctx context.Context, code string, at time.Time) Outcome {
	out := Outcome{ID: uuid.NewString(), Status: OutcomeError, OccurredAt: at}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	st, err := s.resolver.ResolveStudent(cctx, code)
	if errors.Is(err, attendance.ErrStudentNotFound) {
		out.Status = OutcomeNotFound
		return out
	}
	if err != nil {
		s.log.Warn("resolve failed", zap.String("code", code), zap.Error(err))
		return out
	}
	out.StudentID = &st.ID
	out.DisplayName = st.DisplayName
	out.ClassLabel = st.ClassLabel

	day := attendance.DayOf(at)

	// Fast path only: the unique index below is what actually guarantees
	// one record per student-day.
	existing, err := s.store.FindToday(cctx, st.ID, day)
	if err != nil {
		s.log.Warn("record lookup failed", zap.String("student_id", st.ID), zap.Error(err))
		return out
	}
	if existing != nil {
		out.Status = OutcomeAlreadyMarked
		out.RecordedStatus = existing.Status
		return out
	}

	status := attendance.StatusPresent
	if s.isLate(at) {
		status = attendance.StatusLate
	}

	rec := attendance.Record{
		StudentID: st.ID,
		ClassID:   st.ClassID,
		Day:       day,
		Status:    status,
		MarkedAt:  at,
	}
	if _, err := s.store.Insert(cctx, rec); err != nil {
		if errors.Is(err, attendance.ErrDuplicateRecord) {
			// A concurrent scan for the same student won the race.
			insertConflicts.Inc()
			winner, qerr := s.store.FindToday(cctx, st.ID, day)
			if qerr == nil && winner != nil {
				out.Status = OutcomeAlreadyMarked
				out.RecordedStatus = winner.Status
				return out
			}
			err = qerr
		}
		s.log.Warn("insert failed", zap.String("student_id", st.ID), zap.Error(err))
		return out
	}

	out.Status = OutcomeStatus(status)
	return out
}

// isLate compares wall-clock hour and minute against the cutoff; exactly
// at the cutoff minute still counts as present.
func (s *Service) isLate(at time.Time) bool {
	return at.Hour()*60+at.Minute() > s.cfg.CutoffHour*60+s.cfg.CutoffMinute
}

func (s *Service) refreshStats(ctx context.Context, at time.Time) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	present, late, err := s.store.CountToday(cctx, attendance.DayOf(at))
	if err != nil {
		s.log.Warn("stats refresh failed", zap.Error(err))
		return
	}
	s.tally.Replace(present, late)
}

func (s *Service) publish(ctx context.Context, out Outcome) {
	if s.q == nil {
		return
	}
	body, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := s.q.Publish(ctx, queue.Message{Type: "outcome", Body: body}); err != nil {
		s.log.Warn("queue publish failed", zap.Error(err))
	}
}

// Latest returns up to n recent outcomes, newest first.
func (s *Service) Latest(n int) []Outcome {
	return s.history.Latest(n)
}

// Stats returns today's stats snapshot.
func (s *Service) Stats() DailyStats {
	return s.tally.Snapshot()
}
