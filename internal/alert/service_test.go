package alert

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

type notification struct {
	id      string
	status  Status
	outcome string
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []notification
	err  error
}

func (n *recordingNotifier) NotifyAlert(_ context.Context, a *Alert, outcome string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, notification{a.ID, a.Status, outcome})
	return n.err
}

func (n *recordingNotifier) outcomes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.seen))
	for i, s := range n.seen {
		out[i] = s.outcome
	}
	return out
}

func newTestService(t *testing.T, notifier Notifier) (*Service, *time.Time) {
	t.Helper()
	svc := NewService(NewSQLiteRepository(setupTestDB(t)), ServiceOptions{Notifier: notifier})
	clock := base
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func breach(kind threshold.BreachType, temp, limit float64) threshold.BreachEvent {
	return threshold.BreachEvent{
		DeviceID:       "fz-1",
		DeviceName:     "Walk-in 1",
		ReadingID:      7,
		Temperature:    temp,
		ThresholdValue: limit,
		Type:           kind,
		OccurredAt:     base,
	}
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		ev   threshold.BreachEvent
		want string
	}{
		{
			name: "device name",
			ev:   breach(threshold.BreachWarningHigh, -12.5, -15),
			want: "Temperature threshold violated for Walk-in 1: -12.5°C (WARNING_HIGH threshold -15°C)",
		},
		{
			name: "falls back to id",
			ev: threshold.BreachEvent{
				DeviceID: "fz-2", Temperature: -31, ThresholdValue: -30, Type: threshold.BreachCriticalLow,
			},
			want: "Temperature threshold violated for fz-2: -31°C (CRITICAL_LOW threshold -30°C)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMessage(tt.ev); got != tt.want {
				t.Errorf("FormatMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		kind threshold.BreachType
		want Severity
	}{
		{threshold.BreachCriticalHigh, SeverityCritical},
		{threshold.BreachCriticalLow, SeverityCritical},
		{threshold.BreachWarningHigh, SeverityWarning},
		{threshold.BreachWarningLow, SeverityWarning},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.kind); got != tt.want {
			t.Errorf("SeverityFor(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestService_HandleBreach(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _ := newTestService(t, notifier)
	ctx := context.Background()

	a, err := svc.HandleBreach(ctx, breach(threshold.BreachCriticalHigh, -8, -10))
	if err != nil {
		t.Fatalf("HandleBreach() error = %v", err)
	}
	if a.Type != TypeFreezerTemperature || a.EntityType != EntityFreezer || a.EntityID != "fz-1" {
		t.Errorf("alert identity = %s/%s/%s", a.Type, a.EntityType, a.EntityID)
	}
	if a.Severity != SeverityCritical || a.Status != StatusOpen {
		t.Errorf("severity/status = %s/%s", a.Severity, a.Status)
	}

	var bc BreachContext
	if err := json.Unmarshal(a.Context, &bc); err != nil {
		t.Fatalf("context is not JSON: %v", err)
	}
	want := BreachContext{Temperature: -8, ThresholdValue: -10, ThresholdType: "CRITICAL_HIGH", ReadingID: 7}
	if bc != want {
		t.Errorf("context = %+v, want %+v", bc, want)
	}

	if got := notifier.outcomes(); len(got) != 1 || got[0] != OutcomeCreated {
		t.Errorf("notifications = %v, want [created]", got)
	}
}

func TestService_HandleBreachDeduplicates(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, clock := newTestService(t, notifier)
	ctx := context.Background()

	first, err := svc.HandleBreach(ctx, breach(threshold.BreachWarningHigh, -13, -15))
	if err != nil {
		t.Fatalf("HandleBreach() error = %v", err)
	}

	*clock = base.Add(10 * time.Minute)
	second, err := svc.HandleBreach(ctx, breach(threshold.BreachCriticalHigh, -9, -10))
	if err != nil {
		t.Fatalf("HandleBreach() error = %v", err)
	}
	if second.ID != first.ID || second.DuplicateCount != 1 {
		t.Errorf("second alert = %s count=%d, want %s count=1", second.ID, second.DuplicateCount, first.ID)
	}

	*clock = base.Add(time.Hour)
	third, err := svc.HandleBreach(ctx, breach(threshold.BreachWarningHigh, -13, -15))
	if err != nil {
		t.Fatalf("HandleBreach() error = %v", err)
	}
	if third.ID == first.ID {
		t.Error("breach after the window should open a new alert")
	}

	got := notifier.outcomes()
	want := []string{OutcomeCreated, OutcomeDeduplicated, OutcomeCreated}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestService_HandleBreachInvalid(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.HandleBreach(context.Background(), threshold.BreachEvent{Type: threshold.BreachWarningLow})
	if !errors.Is(err, ErrInvalidAlert) {
		t.Errorf("HandleBreach() error = %v, want ErrInvalidAlert", err)
	}
}

func TestService_Lifecycle(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, clock := newTestService(t, notifier)
	ctx := context.Background()

	a, err := svc.HandleBreach(ctx, breach(threshold.BreachWarningLow, -27, -25))
	if err != nil {
		t.Fatalf("HandleBreach() error = %v", err)
	}

	*clock = base.Add(5 * time.Minute)
	acked, err := svc.Acknowledge(ctx, a.ID, "operator")
	if err != nil {
		t.Fatalf("Acknowledge() error = %v", err)
	}
	if acked.Status != StatusAcknowledged || acked.AcknowledgedBy != "operator" {
		t.Errorf("Acknowledge() = %s by %q", acked.Status, acked.AcknowledgedBy)
	}
	if _, err := svc.Acknowledge(ctx, a.ID, "operator"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Acknowledge() error = %v, want ErrInvalidTransition", err)
	}

	*clock = base.Add(20 * time.Minute)
	resolved, err := svc.Resolve(ctx, a.ID, "tech", "door seal replaced")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Status != StatusResolved || resolved.ResolutionNotes != "door seal replaced" {
		t.Errorf("Resolve() = %s notes %q", resolved.Status, resolved.ResolutionNotes)
	}
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(base.Add(20*time.Minute)) {
		t.Errorf("ResolvedAt = %v", resolved.ResolvedAt)
	}

	if _, err := svc.Resolve(ctx, a.ID, "tech", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Resolve() error = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Acknowledge(ctx, a.ID, "operator"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Acknowledge(resolved) error = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Acknowledge(ctx, "alt-none", "operator"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("Acknowledge(unknown) error = %v, want ErrAlertNotFound", err)
	}

	n, err := svc.CountActive(ctx)
	if err != nil {
		t.Fatalf("CountActive() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountActive() = %d, want 0", n)
	}

	list, err := svc.ListForDevice(ctx, "fz-1")
	if err != nil {
		t.Fatalf("ListForDevice() error = %v", err)
	}
	if len(list) != 1 || list[0].Status != StatusResolved {
		t.Errorf("ListForDevice() = %+v", list)
	}

	got := notifier.outcomes()
	want := []string{OutcomeCreated, OutcomeAcknowledged, OutcomeResolved}
	if len(got) != len(want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
}

func TestService_ResolveFromOpen(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	a, err := svc.HandleBreach(ctx, breach(threshold.BreachWarningHigh, -13, -15))
	if err != nil {
		t.Fatalf("HandleBreach() error = %v", err)
	}
	if _, err := svc.Resolve(ctx, a.ID, "tech", ""); err != nil {
		t.Errorf("Resolve(open) error = %v", err)
	}
}

func TestService_NotifierErrorIgnored(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc, _ := newTestService(t, notifier)

	if _, err := svc.HandleBreach(context.Background(), breach(threshold.BreachWarningHigh, -13, -15)); err != nil {
		t.Errorf("HandleBreach() error = %v, want nil despite notifier failure", err)
	}
}
