package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestVerdict_SuccessWhenNoFatalFailure(t *testing.T) {
	report := RunReport{
		Outcomes: []Outcome{
			{Step: StepSchedule, Fatal: true},
			{Step: StepDispatch, Error: "capacity conflict"},
			{Step: StepNote, Error: "timeout"},
			{Step: StepLineItems, Error: "add failed"},
			{Step: StepMirror, Error: "disk full"},
		},
	}
	result := Verdict(report)
	if !result.Success {
		t.Fatalf("expected success when only best-effort steps failed, got %q", result.Error)
	}
	if result.Error != "" {
		t.Errorf("expected empty error on success, got %q", result.Error)
	}
}

func TestVerdict_FailureCarriesFirstFatalMessage(t *testing.T) {
	report := RunReport{
		Outcomes: []Outcome{
			{Step: StepSchedule, Fatal: true, Error: "window rejected"},
		},
	}
	result := Verdict(report)
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "window rejected" {
		t.Errorf("expected the fatal message, got %q", result.Error)
	}
}

func TestVerdict_EmptyReportSucceeds(t *testing.T) {
	if result := Verdict(RunReport{}); !result.Success {
		t.Errorf("expected success for a run with no requested steps, got %q", result.Error)
	}
}

func TestNopPacerRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (NopPacer{}).Wait(ctx); err == nil {
		t.Error("expected context error from cancelled context")
	}
	if err := (NopPacer{}).Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewPacerZeroIntervalIsNop(t *testing.T) {
	pacer := NewPacer(0)
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := pacer.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero-interval pacer should not delay, took %v", elapsed)
	}
}
