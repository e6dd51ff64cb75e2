package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/entity"
)

// fakeRetrier keeps CREATED reports in id order and assigns the ones in assignable
type fakeRetrier struct {
	mu         sync.Mutex
	reports    map[int64]*entity.Report
	assignable map[int64]bool
	listErr    error
	retried    []int64
	callers    []entity.Caller
}

func newFakeRetrier(created []int64, assignable ...int64) *fakeRetrier {
	f := &fakeRetrier{reports: map[int64]*entity.Report{}, assignable: map[int64]bool{}}
	for _, id := range created {
		f.reports[id] = &entity.Report{ID: id, Status: entity.StatusCreated}
	}
	for _, id := range assignable {
		f.assignable[id] = true
	}
	return f
}

func (f *fakeRetrier) ListVisible(ctx context.Context, caller entity.Caller, filter port.ReportFilter) ([]*entity.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callers = append(f.callers, caller)
	if f.listErr != nil {
		return nil, f.listErr
	}

	var matching []*entity.Report
	for id := int64(1); id <= int64(len(f.reports))+100; id++ {
		if r, ok := f.reports[id]; ok && r.Status == filter.Status {
			matching = append(matching, r)
		}
	}
	if filter.Offset >= len(matching) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[filter.Offset:end], nil
}

func (f *fakeRetrier) RetryAssignment(ctx context.Context, caller entity.Caller, reportID int64) (*entity.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, reportID)
	r, ok := f.reports[reportID]
	if !ok {
		return nil, errors.New("not found")
	}
	if f.assignable[reportID] {
		r.Status = entity.StatusAssigned
	}
	return r, nil
}

func (f *fakeRetrier) retriedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.retried...)
}

func TestSweep_RetriesEveryCreatedReport(t *testing.T) {
	f := newFakeRetrier([]int64{1, 2, 3, 4, 5}, 2, 4, 5)
	s := NewAssignmentSweeper(f, zap.NewNop(), WithSweepBatchSize(2))

	assigned := s.Sweep(context.Background())

	assert.Equal(t, 3, assigned)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, f.retriedIDs())
	for _, c := range f.callers {
		assert.Equal(t, entity.SystemCaller, c)
	}
}

func TestSweep_ListError(t *testing.T) {
	f := newFakeRetrier([]int64{1})
	f.listErr = errors.New("database is locked")
	s := NewAssignmentSweeper(f, nil)

	assert.Equal(t, 0, s.Sweep(context.Background()))
	assert.Empty(t, f.retriedIDs())
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFakeRetrier([]int64{7}, 7)
	s := NewAssignmentSweeper(f, zap.NewNop(), WithSweepInterval(5*time.Millisecond))

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		return len(f.retriedIDs()) > 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

type stubWorker struct {
	name     string
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (w *stubWorker) Start(ctx context.Context) error {
	w.started = w.startErr == nil
	return w.startErr
}

func (w *stubWorker) Stop() error {
	w.stopped = true
	return w.stopErr
}

func (w *stubWorker) Name() string { return w.name }

func TestManager(t *testing.T) {
	m := NewManager(zap.NewNop())
	ok := &stubWorker{name: "ok"}
	broken := &stubWorker{name: "broken", startErr: errors.New("boom")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.WorkerCount())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, ok.stopped)

	assert.NoError(t, m.StopAll(), "stopping twice is a no-op")
}

func TestManager_StopErrors(t *testing.T) {
	m := NewManager(nil)
	m.Register(&stubWorker{name: "stuck", stopErr: errors.New("timeout")})

	require.NoError(t, m.StartAll(context.Background()))
	err := m.StopAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck")
}
