package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-folio/pkg/interfaces"
)

type testMessage struct {
	Name string
}

func (testMessage) Type() string { return "folio.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct {
	Name string
}

func (invalidMessage) Type() string { return "folio.test.invalid" }

func (msg invalidMessage) Validate() error {
	return validation.ValidateStruct(&msg,
		validation.Field(&msg.Name, validation.Required),
	)
}

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) record(msg string)                             { l.messages = append(l.messages, msg) }
func (l *recordingLogger) Trace(msg string, _ ...any)                    { l.record(msg) }
func (l *recordingLogger) Debug(msg string, _ ...any)                    { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...any)                     { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)                     { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any)                    { l.record(msg) }
func (l *recordingLogger) Fatal(msg string, _ ...any)                    { l.record(msg) }
func (l *recordingLogger) WithContext(context.Context) interfaces.Logger { return l }

func (l *recordingLogger) has(msg string) bool {
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	logger := &recordingLogger{}
	h := NewHandler(func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	}, WithLogger[testMessage](logger))

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
	if !logger.has("command.execute.success") {
		t.Fatalf("expected success log, got %v", logger.messages)
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler(func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler(func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler(func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !errors.Is(err, execErr) {
		t.Fatalf("expected source error in chain, got %v", err)
	}
}

func TestHandlerKeepsCategorisedErrors(t *testing.T) {
	notFound := goerrors.Wrap(errors.New("missing"), goerrors.CategoryNotFound, "post not found")
	h := NewHandler(func(ctx context.Context, msg testMessage) error {
		return notFound
	})

	err := h.Execute(context.Background(), testMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category to survive, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler(func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHandlerTelemetryReceivesOutcome(t *testing.T) {
	var got TelemetryInfo
	h := NewHandler(func(ctx context.Context, msg testMessage) error {
		return errors.New("boom")
	},
		WithOperation[testMessage]("test.op"),
		WithMessageFields(func(msg testMessage) map[string]any {
			return map[string]any{"name": msg.Name}
		}),
		WithTelemetry(func(_ context.Context, _ testMessage, info TelemetryInfo) {
			got = info
		}),
	)

	_ = h.Execute(context.Background(), testMessage{Name: "site"})
	if got.Status != TelemetryStatusFailed {
		t.Fatalf("expected failed status, got %q", got.Status)
	}
	if got.Command != "folio.test.message" || got.Operation != "test.op" {
		t.Fatalf("unexpected telemetry identity: %+v", got)
	}
	if got.Fields["name"] != "site" {
		t.Fatalf("expected message fields, got %v", got.Fields)
	}
	if got.Error == nil {
		t.Fatal("expected error in telemetry")
	}
}

func TestDefaultTelemetryLogsOutcome(t *testing.T) {
	logger := &recordingLogger{}
	telemetry := DefaultTelemetry[testMessage](logger)

	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusSuccess})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusContextError, Error: context.Canceled})
	telemetry(context.Background(), testMessage{}, TelemetryInfo{Status: TelemetryStatusFailed, Error: errors.New("x")})

	for _, msg := range []string{"command.execute.success", "command.execute.context_error", "command.execute.failed"} {
		if !logger.has(msg) {
			t.Fatalf("expected %s in %v", msg, logger.messages)
		}
	}
}
