package observability

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestAggregateErrorsSkipsNil(t *testing.T) {
	if err := AggregateErrors("shutdown", []error{nil, nil}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAggregateErrorsJoinsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewStdLogger(log.New(&buf, "", 0), false))
	defer SetLogger(nil)

	first := errors.New("server stuck")
	second := errors.New("flush failed")
	err := AggregateErrors("shutdown", []error{first, nil, second}, F("component", "executor"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "shutdown failed: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	line := buf.String()
	if !strings.Contains(line, "operation=shutdown") || !strings.Contains(line, "error_count=2") || !strings.Contains(line, "component=executor") {
		t.Fatalf("unexpected log line %q", line)
	}
}
