package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys attached to executor metrics.
const (
	// AttrEnvironment specifies the deployment environment for every metric.
	AttrEnvironment = attribute.Key("environment")
	AttrOrderSide   = attribute.Key("order.side")
	AttrOrderType   = attribute.Key("order.type")
	// AttrOutcome records the simulated outcome (reject, drop, partial_fill, full_fill).
	AttrOutcome     = attribute.Key("order.outcome")
	AttrExecutable  = attribute.Key("order.executable")
	AttrMessageType = attribute.Key("message.type")
	AttrResult      = attribute.Key("result")
	// AttrErrorType categorizes failures by errs code.
	AttrErrorType = attribute.Key("error.type")
)

// Result values.
const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultCanceled = "canceled"
	ResultRejected = "rejected"
)
