package control

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sweeney/greenhouse-controller/internal/logic"
	"github.com/sweeney/greenhouse-controller/internal/serial"
)

func newReconciler(t *testing.T) (*Reconciler, *serial.FakePort) {
	t.Helper()
	port := serial.NewFakePort()
	ch := serial.NewChannel(serial.Config{Address: "/dev/fake0"}, serial.FakeOpener(port, nil), zap.NewNop())
	if err := ch.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	return NewReconciler(ch, zap.NewNop()), port
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApplyCooldownAndValve(t *testing.T) {
	r, port := newReconciler(t)

	plan, err := r.Apply(logic.StateSet{
		logic.TriggerTemperatureCooldown: true,
		logic.TriggerHumidityControl:     true,
		logic.TriggerValveMonitor:        true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan != (logic.Plan{FanSpeed: 255, ValveOpen: true}) {
		t.Errorf("unexpected plan %+v", plan)
	}
	want := []string{"F:255\n", "W1\n"}
	if got := port.WrittenStrings(); !equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	r, port := newReconciler(t)
	states := logic.StateSet{logic.TriggerHumidityControl: true}

	r.Apply(states)
	r.Apply(states)

	want := []string{"F:128\n", "W0\n", "F:128\n", "W0\n"}
	if got := port.WrittenStrings(); !equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestApplyNoTriggers(t *testing.T) {
	r, port := newReconciler(t)

	plan, _ := r.Apply(logic.StateSet{})
	if plan.FanSpeed != 0 || plan.ValveOpen {
		t.Errorf("expected idle plan, got %+v", plan)
	}
	want := []string{"F:0\n", "W0\n"}
	if got := port.WrittenStrings(); !equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSubmitRejectsInvalid(t *testing.T) {
	r, port := newReconciler(t)

	err := r.Submit(logic.FanSpeed(300))
	if !errors.Is(err, logic.ErrInvalidCommand) {
		t.Errorf("expected ErrInvalidCommand, got %v", err)
	}
	if len(port.WrittenStrings()) != 0 {
		t.Error("invalid command must not reach the wire")
	}
}

func TestSubmitPreservesOrder(t *testing.T) {
	r, port := newReconciler(t)

	r.Submit(logic.AutoMode)
	r.Submit(logic.FanSpeed(64))
	r.Submit(logic.LightOn)

	want := []string{"A\n", "F:64\n", "L1\n"}
	if got := port.WrittenStrings(); !equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestApplyStopsOnSendError(t *testing.T) {
	r, port := newReconciler(t)
	port.WriteError = errors.New("i/o error")

	plan, err := r.Apply(logic.StateSet{logic.TriggerValveMonitor: true})
	if err == nil {
		t.Fatal("expected send error")
	}
	if !plan.ValveOpen {
		t.Error("plan should be returned even when sending fails")
	}
}
