package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesMetadataAndCause(t *testing.T) {
	err := New(
		"executor",
		CodeNoMarketData,
		WithMessage("no market data provider specified for market order"),
		WithMetadata(map[string]string{
			"symbol":  "BTC-USD",
			"session": "s-1",
		}),
		WithField("clOrdId", "c-9"),
		WithCause(errors.New("provider unset")),
	)

	out := err.Error()
	if !strings.Contains(out, "component=executor") {
		t.Fatalf("expected component marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=no_market_data") {
		t.Fatalf("expected code in error string: %s", out)
	}
	expectedMeta := "meta=clOrdId=\"c-9\",session=\"s-1\",symbol=\"BTC-USD\""
	if !strings.Contains(out, expectedMeta) {
		t.Fatalf("expected metadata %q in error string: %s", expectedMeta, out)
	}
	if !strings.Contains(out, "cause=\"provider unset\"") {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestWithFieldIgnoresBlankKey(t *testing.T) {
	err := New("executor", CodeInvalid, WithField("  ", "value"))
	if len(err.Metadata) != 0 {
		t.Fatalf("expected blank key to be ignored, got %v", err.Metadata)
	}
}

func TestCodeOfAndHasCode(t *testing.T) {
	inner := New("sink", CodeValidation, WithMessage("missing ClOrdID"))
	outer := New("executor", CodeInternal, WithCause(inner))
	wrapped := fmt.Errorf("handle order: %w", outer)

	if got := CodeOf(wrapped); got != CodeInternal {
		t.Fatalf("expected outermost code internal, got %q", got)
	}
	if !HasCode(wrapped, CodeValidation) {
		t.Fatal("expected nested validation code to be found")
	}
	if HasCode(wrapped, CodeInvalidSide) {
		t.Fatal("unexpected invalid_side code")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatal("expected empty code for plain error")
	}
}

func TestNilErrorString(t *testing.T) {
	var e *E
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("expected <nil> string for nil error, got %q", got)
	}
}
