// Package dispatcher routes model capability calls to the member backend and
// defines the request envelopes of the query transports.
package dispatcher

import "github.com/morezero/member-query/pkg/members"

// RequestContext carries the scope filters of one inbound request. It is
// immutable for the duration of a run and applied to every capability call.
type RequestContext struct {
	HealthPlanID  string `json:"healthPlanId,omitempty"`
	YearOfService int    `json:"yearOfService,omitempty"`
}

// Scope converts the request context into the members scope.
func (rc RequestContext) Scope() members.Scope {
	return members.Scope{HealthPlanID: rc.HealthPlanID, YearOfService: rc.YearOfService}
}

// IsZero reports whether no scope filter is set.
func (rc RequestContext) IsZero() bool {
	return rc.HealthPlanID == "" && rc.YearOfService == 0
}

// QueryRequest is the JSON envelope for COMMS query requests.
type QueryRequest struct {
	ID       string             `json:"id"`
	Question string             `json:"question"`
	Ctx      *InvocationContext `json:"ctx,omitempty"`
}

// QueryResponse is the JSON envelope for COMMS query responses.
type QueryResponse struct {
	ID      string       `json:"id"`
	Ok      bool         `json:"ok"`
	RunID   string       `json:"runId,omitempty"`
	Answer  string       `json:"answer,omitempty"`
	Outcome string       `json:"outcome,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	HealthPlanID  string `json:"healthPlanId,omitempty"`
	YearOfService int    `json:"yearOfService,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// RequestContext returns the scope filters carried by the invocation context.
func (c *InvocationContext) RequestContext() RequestContext {
	if c == nil {
		return RequestContext{}
	}
	return RequestContext{HealthPlanID: c.HealthPlanID, YearOfService: c.YearOfService}
}
