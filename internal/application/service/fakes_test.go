package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/medialert/reportflow/internal/application/dispatcher"
	"github.com/medialert/reportflow/internal/application/port"
	"github.com/medialert/reportflow/internal/domain/access"
	"github.com/medialert/reportflow/internal/domain/assignment"
	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/internal/domain/event"
)

type mockLogger struct {
	mu     sync.Mutex
	errors int
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors
}

// barrier releases every waiter once n callers arrived
type barrier struct {
	n       int
	mu      sync.Mutex
	arrived int
	release chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, release: make(chan struct{})}
}

func (b *barrier) wait() {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.n {
		close(b.release)
	}
	b.mu.Unlock()
	<-b.release
}

// fakeReportRepo is an in-memory ReportRepository with a real version check
type fakeReportRepo struct {
	mu       sync.Mutex
	reports  map[int64]*entity.Report
	nextID   int64
	users    *fakeUserRepo
	saveErr  error
	getGate  *barrier
	lastList struct {
		scope  access.Scope
		filter port.ReportFilter
	}
}

func newFakeReportRepo(users *fakeUserRepo) *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[int64]*entity.Report), users: users}
}

func (m *fakeReportRepo) Create(ctx context.Context, report *entity.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	report.ID = m.nextID
	report.Version = 1
	m.reports[report.ID] = report.Clone()
	return nil
}

func (m *fakeReportRepo) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	m.mu.Lock()
	stored, ok := m.reports[id]
	var out *entity.Report
	if ok {
		out = stored.Clone()
	}
	gate := m.getGate
	m.mu.Unlock()

	if gate != nil {
		gate.wait()
	}
	return out, nil
}

func (m *fakeReportRepo) Save(ctx context.Context, report *entity.Report, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.reports[report.ID]
	if !ok || stored.Version != expectedVersion {
		return port.ErrVersionConflict
	}
	report.Version = expectedVersion + 1
	m.reports[report.ID] = report.Clone()
	return nil
}

func (m *fakeReportRepo) QueryReviewerWorkload(ctx context.Context, institutionID string, scope assignment.Scope) ([]entity.ReviewerCandidate, error) {
	pros, _ := m.users.ListByRole(ctx, entity.RoleProfessional, "")

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.ReviewerCandidate
	for _, u := range pros {
		if scope == assignment.ScopeInstitution && u.InstitutionID != institutionID {
			continue
		}
		c := entity.ReviewerCandidate{UserID: u.ID, InstitutionID: u.InstitutionID}
		for _, r := range m.reports {
			if r.ReviewerIs(u.ID) {
				c.CurrentAssignedReportCount++
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *fakeReportRepo) List(ctx context.Context, scope access.Scope, filter port.ReportFilter) ([]*entity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList.scope = scope
	m.lastList.filter = filter

	var out []*entity.Report
	for _, r := range m.reports {
		if scope.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *fakeReportRepo) stored(id int64) *entity.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reports[id].Clone()
}

func (m *fakeReportRepo) put(r *entity.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID > m.nextID {
		m.nextID = r.ID
	}
	m.reports[r.ID] = r.Clone()
}

type fakeHistoryRepo struct {
	mu   sync.Mutex
	rows []*entity.ReportHistory
}

func (m *fakeHistoryRepo) Create(ctx context.Context, h *entity.ReportHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, h)
	return nil
}

func (m *fakeHistoryRepo) GetByReportID(ctx context.Context, reportID int64) ([]*entity.ReportHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ReportHistory
	for _, h := range m.rows {
		if h.ReportID == reportID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo(users ...entity.User) *fakeUserRepo {
	m := &fakeUserRepo{users: make(map[string]*entity.User)}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *fakeUserRepo) Upsert(ctx context.Context, user *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	m.users[u.ID] = &u
	return nil
}

func (m *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *fakeUserRepo) ListByRole(ctx context.Context, role entity.Role, institutionID string) ([]*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.User
	for _, u := range m.users {
		if u.Role == role && (institutionID == "" || u.InstitutionID == institutionID) {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []*entity.Report
	changed []string
}

func (n *recordingNotifier) OnReportCreated(ctx context.Context, report *entity.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, report.Clone())
}

func (n *recordingNotifier) OnStatusChanged(ctx context.Context, report *entity.Report, previousStatus string, actor entity.Caller, action string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, previousStatus+"->"+report.Status)
}

type fakeAlertRepo struct {
	mu        sync.Mutex
	alerts    []*entity.AlertNotification
	err       error
	lastLimit int
}

func (m *fakeAlertRepo) Create(ctx context.Context, a *entity.AlertNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	a.ID = int64(len(m.alerts) + 1)
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *fakeAlertRepo) GetByID(ctx context.Context, id int64) (*entity.AlertNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (m *fakeAlertRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]*entity.AlertNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []*entity.AlertNotification
	for _, a := range m.alerts {
		if a.RecipientID == recipientID && (!unreadOnly || !a.Read) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *fakeAlertRepo) MarkRead(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.ID == id {
			a.Read = true
			return nil
		}
	}
	return errors.New("alert not found")
}

func (m *fakeAlertRepo) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, a.RecipientID)
	}
	sort.Strings(out)
	return out
}

// recordingDispatcher captures async events instead of running handlers
type recordingDispatcher struct {
	dispatcher.Dispatcher
	mu     sync.Mutex
	events []*event.Event
}

func (d *recordingDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
}
