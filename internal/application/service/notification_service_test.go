package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/medialert/reportflow/internal/application/dispatcher"
	"github.com/medialert/reportflow/internal/domain/entity"
	"github.com/medialert/reportflow/internal/domain/event"
)

func alertReport(reviewer string) *entity.Report {
	r := &entity.Report{
		ID:            11,
		PatientID:     "pat-1",
		MedicationID:  "med-7",
		InstitutionID: "inst-1",
		Severity:      entity.SeverityMortal,
		Status:        entity.StatusCreated,
	}
	if reviewer != "" {
		r.ReviewerID = entity.StringPtr(reviewer)
		r.Status = entity.StatusAssigned
	}
	return r
}

func newAlertFixture(users ...entity.User) (NotificationService, dispatcher.Dispatcher, *fakeAlertRepo) {
	alerts := &fakeAlertRepo{}
	d := dispatcher.NewDispatcher()
	svc := NewNotificationService(alerts, newFakeUserRepo(users...), d, &mockLogger{})
	svc.RegisterHandlers()
	return svc, d, alerts
}

// publish runs evt through every handler and waits for them to finish
func publish(t *testing.T, d dispatcher.Dispatcher, evt *event.Event) {
	t.Helper()
	d.DispatchAsync(context.Background(), evt)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestNotificationService_RegisterHandlers(t *testing.T) {
	_, d, _ := newAlertFixture()

	for evtType, name := range map[event.Type]string{
		event.TypeReportCreated:    HandlerAlertOnCreated,
		event.TypeStatusChanged:    HandlerAlertOnStatus,
		event.TypeReviewerAssigned: HandlerAlertOnAssigned,
	} {
		handlers := d.ListHandlers(evtType)
		if len(handlers) != 1 || handlers[0].Name != name {
			t.Errorf("%s handlers = %+v, want %s", evtType, handlers, name)
		}
	}
}

func TestAlertOnCreated(t *testing.T) {
	tests := []struct {
		name     string
		reviewer string
		want     []string
	}{
		{name: "assigned report alerts reviewer", reviewer: "pro-1", want: []string{"pro-1"}},
		{name: "unassigned report alerts institution supervisors", want: []string{"sup-1", "sup-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, d, alerts := newAlertFixture(
				entity.User{ID: "sup-1", Role: entity.RoleSupervisor, InstitutionID: "inst-1"},
				entity.User{ID: "sup-2", Role: entity.RoleSupervisor, InstitutionID: "inst-1"},
				entity.User{ID: "sup-x", Role: entity.RoleSupervisor, InstitutionID: "inst-2"},
			)

			publish(t, d, event.NewEvent(event.TypeReportCreated, alertReport(tt.reviewer), nil))

			if got := alerts.recipients(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("recipients = %v, want %v", got, tt.want)
			}
			for _, a := range alerts.alerts {
				if a.Priority != entity.PriorityUrgent {
					t.Errorf("Priority = %s, want URGENT", a.Priority)
				}
				if a.ReportID != 11 {
					t.Errorf("ReportID = %d, want 11", a.ReportID)
				}
			}
		})
	}
}

func TestAlertOnStatusChanged(t *testing.T) {
	tests := []struct {
		name   string
		actor  string
		action string
		want   []string
	}{
		{name: "reviewer acts, patient alerted", actor: "pro-1", action: "approve_report", want: []string{"pat-1"}},
		{name: "supervisor acts, both alerted", actor: "sup-1", action: "revert_status", want: []string{"pat-1", "pro-1"}},
		{name: "assignment leaves reviewer to its own event", actor: "sup-1", action: "assign_reviewer", want: []string{"pat-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, d, alerts := newAlertFixture()
			evt := event.NewEvent(event.TypeStatusChanged, alertReport("pro-1"), map[string]interface{}{
				event.PayloadActorID:        tt.actor,
				event.PayloadAction:         tt.action,
				event.PayloadPreviousStatus: entity.StatusInRevision,
			})

			publish(t, d, evt)
			if got := alerts.recipients(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("recipients = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlertHandler_StoreErrorIsLogged(t *testing.T) {
	alerts := &fakeAlertRepo{err: errors.New("db locked")}
	dispatchLog := &mockLogger{}
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(dispatchLog))
	svc := NewNotificationService(alerts, newFakeUserRepo(), d, &mockLogger{})
	svc.RegisterHandlers()

	publish(t, d, event.NewEvent(event.TypeReviewerAssigned, alertReport("pro-1"), nil))

	if dispatchLog.errorCount() == 0 {
		t.Error("store error not reported by the dispatcher")
	}
	if len(alerts.alerts) != 0 {
		t.Errorf("alerts = %d, want 0", len(alerts.alerts))
	}
}

func TestNotificationTrigger_PublishesEvents(t *testing.T) {
	rec := &recordingDispatcher{}
	svc := NewNotificationService(&fakeAlertRepo{}, newFakeUserRepo(), rec, &mockLogger{})
	ctx := context.Background()
	report := alertReport("pro-1")

	svc.OnReportCreated(ctx, report)
	svc.OnStatusChanged(ctx, report, entity.StatusCreated, entity.Caller{ID: "sup-1", Role: entity.RoleSupervisor}, "assign_reviewer")
	svc.OnStatusChanged(ctx, report, entity.StatusAssigned, entity.Caller{ID: "pro-1", Role: entity.RoleProfessional}, "start_review")

	wantTypes := []event.Type{event.TypeReportCreated, event.TypeStatusChanged, event.TypeReviewerAssigned, event.TypeStatusChanged}
	if len(rec.events) != len(wantTypes) {
		t.Fatalf("events = %d, want %d", len(rec.events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if rec.events[i].Type != want {
			t.Errorf("event[%d] = %s, want %s", i, rec.events[i].Type, want)
		}
	}
	if rec.events[1].CorrelationID != rec.events[2].CorrelationID {
		t.Error("assignment events should share a correlation id")
	}
	if got := rec.events[3].GetPayloadString(event.PayloadPreviousStatus); got != entity.StatusAssigned {
		t.Errorf("previous_status = %q, want ASSIGNED", got)
	}
}

func TestListAndMarkAlerts(t *testing.T) {
	svc, d, alerts := newAlertFixture()
	ctx := context.Background()
	publish(t, d, event.NewEvent(event.TypeReviewerAssigned, alertReport("pro-1"), nil))

	pro := entity.Caller{ID: "pro-1", Role: entity.RoleProfessional, InstitutionID: "inst-1"}
	list, err := svc.ListAlerts(ctx, pro, true, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("unread alerts = %d, want 1", len(list))
	}

	intruder := entity.Caller{ID: "pat-1", Role: entity.RolePatient, InstitutionID: "inst-1"}
	if err := svc.MarkAlertRead(ctx, intruder, list[0].ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("foreign MarkAlertRead() error = %v, want ErrNotAuthorized", err)
	}
	if err := svc.MarkAlertRead(ctx, pro, 404); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("missing alert error = %v, want ErrNotAuthorized", err)
	}
	if err := svc.MarkAlertRead(ctx, pro, list[0].ID); err != nil {
		t.Fatalf("MarkAlertRead() error = %v", err)
	}
	if err := svc.MarkAlertRead(ctx, pro, list[0].ID); err != nil {
		t.Errorf("second MarkAlertRead() error = %v", err)
	}

	list, _ = svc.ListAlerts(ctx, pro, true, 10, 0)
	if len(list) != 0 {
		t.Errorf("unread alerts after read = %d, want 0", len(list))
	}
	if !alerts.alerts[0].Read {
		t.Error("alert not flagged read")
	}

	if _, err := svc.ListAlerts(ctx, entity.Caller{}, false, 10, 0); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("anonymous ListAlerts() error = %v", err)
	}
}

func TestListAlerts_Limit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero uses default", limit: 0, want: defaultListLimit},
		{name: "negative uses default", limit: -3, want: defaultListLimit},
		{name: "within range kept", limit: 75, want: 75},
		{name: "at maximum kept", limit: maxListLimit, want: maxListLimit},
		{name: "above maximum clamped", limit: maxListLimit + 1, want: maxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, alerts := newAlertFixture()
			caller := entity.Caller{ID: "pro-1", Role: entity.RoleProfessional, InstitutionID: "inst-1"}

			if _, err := svc.ListAlerts(context.Background(), caller, false, tt.limit, 0); err != nil {
				t.Fatal(err)
			}
			if alerts.lastLimit != tt.want {
				t.Errorf("repository limit = %d, want %d", alerts.lastLimit, tt.want)
			}
		})
	}
}
