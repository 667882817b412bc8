package observability

import (
	"errors"
	"fmt"
)

// AggregateErrors joins the non-nil errors of a multi-step operation, logs one
// entry listing them and returns the joined error. It returns nil when every
// step succeeded.
func AggregateErrors(operation string, stepErrs []error, fields ...Field) error {
	failed := make([]error, 0, len(stepErrs))
	messages := make([]string, 0, len(stepErrs))
	for _, err := range stepErrs {
		if err == nil {
			continue
		}
		failed = append(failed, err)
		messages = append(messages, err.Error())
	}
	if len(failed) == 0 {
		return nil
	}
	logFields := make([]Field, 0, len(fields)+3)
	logFields = append(logFields, fields...)
	logFields = append(logFields,
		F("operation", operation),
		F("error_count", len(failed)),
		F("errors", messages),
	)
	Log().Error("operation errors", logFields...)
	return fmt.Errorf("%s failed: %w", operation, errors.Join(failed...))
}
