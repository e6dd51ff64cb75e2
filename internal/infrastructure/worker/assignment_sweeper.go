package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/entity"
)

// AssignmentRetrier is the slice of the report service the sweeper drives
type AssignmentRetrier interface {
	ListVisible(ctx context.Context, caller entity.Caller, filter port.ReportFilter) ([]*entity.Report, error)
	RetryAssignment(ctx context.Context, caller entity.Caller, reportID int64) (*entity.Report, error)
}

// AssignmentSweeper periodically re-runs auto-assignment for reports still
// in CREATED, e.g. after a workload tie or a failed first attempt.
type AssignmentSweeper struct {
	reports AssignmentRetrier
	logger  *zap.Logger

	interval  time.Duration
	batchSize int
	timeout   time.Duration

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// SweeperOption configures the sweeper
type SweeperOption func(*AssignmentSweeper)

// WithSweepInterval sets how often CREATED reports are retried
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *AssignmentSweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepBatchSize sets the page size used to walk CREATED reports
func WithSweepBatchSize(n int) SweeperOption {
	return func(s *AssignmentSweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewAssignmentSweeper creates a sweeper over reports
func NewAssignmentSweeper(reports AssignmentRetrier, logger *zap.Logger, opts ...SweeperOption) *AssignmentSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AssignmentSweeper{
		reports:   reports,
		logger:    logger,
		interval:  time.Minute,
		batchSize: 50,
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the worker name for identification
func (s *AssignmentSweeper) Name() string {
	return "AssignmentSweeper"
}

// Start launches the sweep loop
func (s *AssignmentSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("assignment sweeper is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.isRunning = true

	s.logger.Info("AssignmentSweeper started",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize))

	go s.loop(runCtx, s.done)
	return nil
}

// Stop cancels the loop and waits for the current sweep to finish
func (s *AssignmentSweeper) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("AssignmentSweeper stopped")
	return nil
}

func (s *AssignmentSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep retries assignment for every CREATED report once and returns how
// many became ASSIGNED.
func (s *AssignmentSweeper) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var candidates []int64
	for offset := 0; ; offset += s.batchSize {
		page, err := s.reports.ListVisible(ctx, entity.SystemCaller, port.ReportFilter{
			Status: entity.StatusCreated,
			Limit:  s.batchSize,
			Offset: offset,
		})
		if err != nil {
			s.logger.Error("Failed to list unassigned reports", zap.Error(err))
			break
		}
		for _, r := range page {
			candidates = append(candidates, r.ID)
		}
		if len(page) < s.batchSize {
			break
		}
	}

	assigned := 0
	for _, id := range candidates {
		if ctx.Err() != nil {
			break
		}
		report, err := s.reports.RetryAssignment(ctx, entity.SystemCaller, id)
		if err != nil {
			// Reports moved on by someone else between list and retry are expected
			s.logger.Debug("Assignment retry skipped", zap.Int64("report_id", id), zap.Error(err))
			continue
		}
		if report != nil && report.Status == entity.StatusAssigned {
			assigned++
		}
	}

	if len(candidates) > 0 {
		s.logger.Info("Assignment sweep finished",
			zap.Int("unassigned", len(candidates)),
			zap.Int("assigned", assigned))
	}
	return assigned
}
