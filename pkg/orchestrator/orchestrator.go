// Package orchestrator runs the bounded question-to-answer loop: it alternates
// model round trips with capability dispatches until the model answers, fails,
// or the iteration cap is reached.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/events"
	"github.com/morezero/member-query/pkg/llm"
)

const logPrefix = "orchestrator:run"

// DefaultMaxIterations caps model round trips per run.
const DefaultMaxIterations = 6

// FallbackMessage is the answer of an exhausted run.
const FallbackMessage = "I'm sorry, I could not complete that request. Please try rephrasing your question."

// SystemPrompt instructs the model how to use the capabilities.
const SystemPrompt = `You are an assistant that answers questions about health plan members.
Use the provided tools to look up member data; never invent member records.
When a question implies several filters or data sets, call multiple tools one after another.
Combine the tool results logically before giving the final answer.
If a tool reports "Member not found", say so plainly.`

// Outcomes of a run that returned an answer.
const (
	OutcomeCompleted = events.OutcomeCompleted
	OutcomeExhausted = events.OutcomeExhausted
	OutcomeFailed    = events.OutcomeFailed
)

// Dispatcher invokes one capability for the run.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]interface{}, rc dispatcher.RequestContext) (json.RawMessage, error)
}

// Result is the outcome of one run.
type Result struct {
	RunID        string
	Answer       string
	Outcome      string
	Iterations   int
	Capabilities []string
	Transcript   []conversation.Turn
}

// Orchestrator is safe for concurrent use; every Run owns its own transcript.
type Orchestrator struct {
	client        llm.Client
	catalog       *catalog.Catalog
	dispatcher    Dispatcher
	publisher     events.EventPublisher
	compactor     *conversation.Compactor
	maxIterations int
	timeout       time.Duration
	systemPrompt  string
}

// Params holds parameters for New.
type Params struct {
	Client     llm.Client
	Catalog    *catalog.Catalog
	Dispatcher Dispatcher
	// Publisher receives a RunCompletedEvent after every run. Nil disables events.
	Publisher events.EventPublisher
	// Compactor bounds the transcript sent to the model. Nil sends it whole.
	Compactor *conversation.Compactor
	// MaxIterations defaults to DefaultMaxIterations.
	MaxIterations int
	// Timeout bounds one run's wall-clock time. Zero means no limit beyond ctx.
	Timeout time.Duration
	// SystemPrompt defaults to SystemPrompt.
	SystemPrompt string
}

// New creates an Orchestrator.
func New(params Params) (*Orchestrator, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("%s - model client is required", logPrefix)
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("%s - catalog is required", logPrefix)
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("%s - dispatcher is required", logPrefix)
	}
	if params.MaxIterations < 0 {
		return nil, fmt.Errorf("%s - max iterations must not be negative", logPrefix)
	}

	o := &Orchestrator{
		client:        params.Client,
		catalog:       params.Catalog,
		dispatcher:    params.Dispatcher,
		publisher:     params.Publisher,
		compactor:     params.Compactor,
		maxIterations: params.MaxIterations,
		timeout:       params.Timeout,
		systemPrompt:  params.SystemPrompt,
	}
	if o.publisher == nil {
		o.publisher = &events.NoOpPublisher{}
	}
	if o.maxIterations == 0 {
		o.maxIterations = DefaultMaxIterations
	}
	if o.systemPrompt == "" {
		o.systemPrompt = SystemPrompt
	}
	return o, nil
}

// MaxIterations returns the iteration cap.
func (o *Orchestrator) MaxIterations() int { return o.maxIterations }

// Run answers question, scoping every capability call with rc. On error the
// returned Result is still populated (RunID, Iterations, Transcript) with
// Outcome "failed". An exhausted run is not an error: it returns the fallback
// answer with Outcome "exhausted".
func (o *Orchestrator) Run(ctx context.Context, question string, rc dispatcher.RequestContext) (*Result, error) {
	runID := uuid.NewString()
	logger := slog.With("run_id", runID)
	if !rc.IsZero() {
		logger = logger.With("health_plan_id", rc.HealthPlanID, "year_of_service", rc.YearOfService)
	}
	start := time.Now()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res := &Result{RunID: runID}
	transcript := conversation.NewTranscript(o.systemPrompt, question)

	err := o.loop(ctx, logger, transcript, rc, res)
	res.Transcript = transcript.Turns()
	logger.Debug(fmt.Sprintf("%s - transcript %d turns %v", logPrefix, transcript.Len(), transcript.Kinds()))
	if err != nil {
		res.Outcome = OutcomeFailed
	}

	logger.Info(fmt.Sprintf("%s - run finished outcome=%s iterations=%d duration=%s",
		logPrefix, res.Outcome, res.Iterations, time.Since(start).Round(time.Millisecond)))
	o.publish(context.WithoutCancel(ctx), logger, res, err, rc, start)
	return res, err
}

func (o *Orchestrator) loop(ctx context.Context, logger *slog.Logger, transcript *conversation.Transcript, rc dispatcher.RequestContext, res *Result) error {
	tools := o.catalog.List()

	for res.Iterations < o.maxIterations {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s - run abandoned: %w", logPrefix, err)
		}

		view := o.compactor.Fit(transcript.Turns())
		resp, err := o.client.Complete(ctx, view, tools)
		res.Iterations++
		iterLogger := logger.With("iteration", res.Iterations)

		if err != nil {
			return o.modelError(ctx, iterLogger, err)
		}
		if resp == nil || (!resp.IsCall() && resp.Text == "") {
			return &MalformedResponseError{Reason: "empty response"}
		}

		if !resp.IsCall() {
			transcript.Append(conversation.AssistantText(resp.Text))
			res.Answer = resp.Text
			res.Outcome = OutcomeCompleted
			return nil
		}

		call := resp.Call
		if !o.catalog.Has(call.Name) {
			iterLogger.Warn(fmt.Sprintf("%s - model requested unknown capability %q", logPrefix, call.Name))
			return &UnknownCapabilityError{Name: call.Name}
		}

		callID := call.ID
		if callID == "" {
			callID = fmt.Sprintf("call_%d", res.Iterations)
		}
		args := call.Arguments
		if args == nil {
			args = map[string]interface{}{}
		}
		transcript.Append(conversation.CallRequest(callID, call.Name, args))
		res.Capabilities = append(res.Capabilities, call.Name)

		iterLogger.Debug(fmt.Sprintf("%s - dispatching %s", logPrefix, call.Name), "capability", call.Name)
		payload, err := o.dispatcher.Dispatch(ctx, call.Name, args, rc)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s - run abandoned after %s: %w", logPrefix, call.Name, ctxErr)
		}
		if err != nil {
			iterLogger.Error(fmt.Sprintf("%s - capability %s failed: %v", logPrefix, call.Name, err), "capability", call.Name)
			if !errors.Is(err, ErrCapabilityExecution) {
				err = &dispatcher.ExecutionError{Capability: call.Name, Cause: err}
			}
			return err
		}
		transcript.Append(conversation.CapabilityResult(callID, call.Name, payload))
	}

	logger.Warn(fmt.Sprintf("%s - iteration cap %d reached without an answer", logPrefix, o.maxIterations))
	res.Answer = FallbackMessage
	res.Outcome = OutcomeExhausted
	return nil
}

func (o *Orchestrator) modelError(ctx context.Context, logger *slog.Logger, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s - run abandoned: %w", logPrefix, ctxErr)
	}
	var malformed *llm.MalformedError
	if errors.As(err, &malformed) {
		logger.Warn(fmt.Sprintf("%s - malformed model response: %s", logPrefix, malformed.Reason))
		return &MalformedResponseError{Reason: malformed.Reason}
	}
	logger.Error(fmt.Sprintf("%s - model call failed: %v", logPrefix, err))
	return &ModelUnavailableError{Cause: err}
}

func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, res *Result, runErr error, rc dispatcher.RequestContext, start time.Time) {
	event := &events.RunCompletedEvent{
		RunID:         res.RunID,
		Outcome:       res.Outcome,
		ErrorCode:     ErrorCode(runErr),
		Iterations:    res.Iterations,
		Capabilities:  append([]string{}, res.Capabilities...),
		DurationMs:    time.Since(start).Milliseconds(),
		HealthPlanID:  rc.HealthPlanID,
		YearOfService: rc.YearOfService,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := o.publisher.PublishRunCompleted(ctx, event); err != nil {
		logger.Warn(fmt.Sprintf("%s - failed to publish run event: %v", logPrefix, err))
	}
}
