package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scangate/internal/attendance"
	"scangate/internal/queue"
)

// -- Fakes --

type fakeResolver struct {
	students map[string]attendance.Student
}

func (f *fakeResolver) ResolveStudent(_ context.Context, code string) (attendance.Student, error) {
	st, ok := f.students[code]
	if !ok || !st.IsActive {
		return attendance.Student{}, attendance.ErrStudentNotFound
	}
	return st, nil
}

// fakeStore enforces the student-day uniqueness the same way the Postgres
// unique index does.
type fakeStore struct {
	mu        sync.Mutex
	records   map[string]attendance.Record
	insertErr error
	findErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]attendance.Record)}
}

func recordKey(studentID string, day time.Time) string {
	return studentID + "|" + day.Format("2006-01-02")
}

func (f *fakeStore) FindToday(_ context.Context, studentID string, day time.Time) (*attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := f.records[recordKey(studentID, day)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) Insert(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return attendance.Record{}, f.insertErr
	}
	key := recordKey(rec.StudentID, rec.Day)
	if _, ok := f.records[key]; ok {
		return attendance.Record{}, attendance.ErrDuplicateRecord
	}
	rec.ID = key
	rec.CreatedAt = rec.MarkedAt
	f.records[key] = rec
	return rec, nil
}

func (f *fakeStore) CountToday(_ context.Context, day time.Time) (present, late int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if !rec.Day.Equal(day) {
			continue
		}
		switch rec.Status {
		case attendance.StatusPresent:
			present++
		case attendance.StatusLate:
			late++
		}
	}
	return present, late, nil
}

// blindStore hides existing records from the first two FindToday calls so
// both concurrent scanners pass the read check and race on the insert.
type blindStore struct {
	*fakeStore
	calls int32
}

func (b *blindStore) FindToday(ctx context.Context, studentID string, day time.Time) (*attendance.Record, error) {
	if atomic.AddInt32(&b.calls, 1) <= 2 {
		return nil, nil
	}
	return b.fakeStore.FindToday(ctx, studentID, day)
}

func testStudents() map[string]attendance.Student {
	return map[string]attendance.Student{
		"S001": {ID: "11111111-0000-0000-0000-000000000001", ExternalCode: "S001", DisplayName: "Amina Diallo", ClassLabel: "5A", IsActive: true},
		"S002": {ID: "11111111-0000-0000-0000-000000000002", ExternalCode: "S002", DisplayName: "Bakary Kone", ClassLabel: "5B", IsActive: true},
		"S003": {ID: "11111111-0000-0000-0000-000000000003", ExternalCode: "S003", DisplayName: "Chipo Moyo", ClassLabel: "6A", IsActive: false},
	}
}

func newTestService(store RecordStore) *Service {
	return NewService(
		&fakeResolver{students: testStudents()},
		store,
		nil,
		nil,
		Config{CutoffHour: 8, CutoffMinute: 30, DebounceWindow: 2 * time.Second, HistorySize: 50, StoreTimeout: time.Second},
	)
}

func at(hour, min, sec int) time.Time {
	return time.Date(2025, 9, 1, hour, min, sec, 0, time.UTC)
}

// -- Tests --

func TestProcessHappyPathPresent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	out, err := svc.Process(context.Background(), "S001", at(8, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, OutcomePresent, out.Status)
	assert.Equal(t, "Amina Diallo", out.DisplayName)
	assert.Equal(t, "5A", out.ClassLabel)
	require.NotNil(t, out.StudentID)

	require.Len(t, store.records, 1)
	for _, rec := range store.records {
		assert.Equal(t, attendance.StatusPresent, rec.Status)
		assert.Equal(t, at(0, 0, 0), rec.Day)
	}
	assert.Equal(t, DailyStats{Present: 1, Late: 0, Total: 1}, svc.Stats())

	latest := svc.Latest(1)
	require.Len(t, latest, 1)
	assert.Equal(t, out.ID, latest[0].ID)
}

func TestProcessLatePath(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	out, err := svc.Process(context.Background(), "S002", at(9, 15, 0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeLate, out.Status)
	assert.Equal(t, DailyStats{Present: 0, Late: 1, Total: 1}, svc.Stats())
}

func TestCutoffBoundaryIsInclusive(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	// Exactly 08:30, even with seconds, still counts as present.
	out, err := svc.Process(context.Background(), "S001", at(8, 30, 59))
	require.NoError(t, err)
	assert.Equal(t, OutcomePresent, out.Status)

	out, err = svc.Process(context.Background(), "S002", at(8, 31, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeLate, out.Status)
}

func TestUnknownCodeProducesNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	out, err := svc.Process(context.Background(), "ZZZ999", at(8, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotFound, out.Status)
	assert.Nil(t, out.StudentID)
	assert.Empty(t, store.records)
	assert.Equal(t, DailyStats{}, svc.Stats())
}

func TestInactiveStudentProducesNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	out, err := svc.Process(context.Background(), "S003", at(8, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, out.Status)
}

func TestSecondScanSameDayIsAlreadyMarked(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	first, err := svc.Process(context.Background(), "S001", at(8, 0, 0))
	require.NoError(t, err)
	require.Equal(t, OutcomePresent, first.Status)

	second, err := svc.Process(context.Background(), "S001", at(8, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyMarked, second.Status)
	assert.Equal(t, attendance.StatusPresent, second.RecordedStatus)

	require.Len(t, store.records, 1)
	assert.Equal(t, DailyStats{Present: 1, Late: 0, Total: 1}, svc.Stats())
}

func TestConcurrentScansRecordExactlyOnce(t *testing.T) {
	store := &blindStore{fakeStore: newFakeStore()}
	svc := newTestService(store)

	// Two codes resolving to the same student, e.g. a re-issued card still
	// active alongside the original.
	svcResolver := svc.resolver.(*fakeResolver)
	dup := svcResolver.students["S001"]
	dup.ExternalCode = "S001R"
	svcResolver.students["S001R"] = dup

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	for i, code := range []string{"S001", "S001R"} {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.Process(context.Background(), code, at(8, 0, 0))
		}(i, code)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	require.Len(t, store.records, 1)
	statuses := map[OutcomeStatus]int{}
	for _, out := range outcomes {
		statuses[out.Status]++
	}
	assert.Equal(t, 1, statuses[OutcomePresent], "exactly one scan wins the insert")
	assert.Equal(t, 1, statuses[OutcomeAlreadyMarked], "the loser reports the winning record")
}

func TestDebouncedRepeatEmitsNoOutcome(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.Process(context.Background(), "S001", at(8, 0, 0))
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), "S001", at(8, 0, 0).Add(500*time.Millisecond))
	assert.ErrorIs(t, err, ErrDebounced)
	assert.Len(t, svc.Latest(0), 1)

	// Past the window the same code is a fresh event again.
	out, err := svc.Process(context.Background(), "S001", at(8, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyMarked, out.Status)
	assert.Len(t, svc.Latest(0), 2)
}

func TestEmptyCodeRejectedBeforePipeline(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Process(context.Background(), "   ", at(8, 0, 0))
	assert.ErrorIs(t, err, ErrEmptyCode)
	assert.Empty(t, svc.Latest(0))
}

func TestTransientStoreFailureReportsErrorOutcome(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection reset")
	svc := newTestService(store)

	out, err := svc.Process(context.Background(), "S001", at(8, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, OutcomeError, out.Status)
	assert.Equal(t, DailyStats{}, svc.Stats())
	// The failure is still visible to the operator.
	assert.Len(t, svc.Latest(0), 1)
}

func TestSeedPrimesStatsFromStore(t *testing.T) {
	store := newFakeStore()
	day := attendance.DayOf(time.Now())
	store.records[recordKey("a", day)] = attendance.Record{StudentID: "a", Day: day, Status: attendance.StatusPresent}
	store.records[recordKey("b", day)] = attendance.Record{StudentID: "b", Day: day, Status: attendance.StatusPresent}
	store.records[recordKey("c", day)] = attendance.Record{StudentID: "c", Day: day, Status: attendance.StatusLate}

	svc := newTestService(store)
	require.NoError(t, svc.Seed(context.Background()))
	assert.Equal(t, DailyStats{Present: 2, Late: 1, Total: 3}, svc.Stats())
}

func TestOutcomePublishedForFeedback(t *testing.T) {
	store := newFakeStore()
	q := queue.NewInMemory(4)
	svc := NewService(
		&fakeResolver{students: testStudents()},
		store,
		q,
		nil,
		Config{CutoffHour: 8, CutoffMinute: 30, DebounceWindow: 2 * time.Second, HistorySize: 50, StoreTimeout: time.Second},
	)

	out, err := svc.Process(context.Background(), "S001", at(9, 0, 0))
	require.NoError(t, err)
	require.Equal(t, OutcomeLate, out.Status)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	messages, err := q.Consume(ctx)
	require.NoError(t, err)

	select {
	case msg := <-messages:
		assert.Equal(t, "outcome", msg.Type)
		var published Outcome
		require.NoError(t, json.Unmarshal(msg.Body, &published))
		assert.Equal(t, out.ID, published.ID)
		assert.Equal(t, OutcomeLate, published.Status)
	case <-ctx.Done():
		t.Fatal("no outcome published")
	}
}
