package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/member-query/pkg/commsutil"
	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/orchestrator"
)

const commsLogPrefix = "server:comms"

// codeInvalidRequest reports an undecodable or empty query request.
const codeInvalidRequest = "INVALID_REQUEST"

// defaultQueryConcurrency applies when the config leaves QueryConcurrency unset.
const defaultQueryConcurrency = 16

// Subscribe answers query requests on subject until the subscription is
// removed. Each request runs under ctx on its own goroutine; at most
// QueryConcurrency run at once and further messages wait for a free slot.
func (s *Server) Subscribe(ctx context.Context, nc *comms.Conn, subject string) (*comms.Subscription, error) {
	if subject == "" {
		subject = commsutil.SubjectQuery
	}
	limit := s.cfg.QueryConcurrency
	if limit <= 0 {
		limit = defaultQueryConcurrency
	}
	sem := make(chan struct{}, limit)

	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		sem <- struct{}{}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			defer func() { <-sem }()
			s.respond(ctx, msg)
		}()
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", commsLogPrefix, subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s (concurrency %d)", commsLogPrefix, subject, limit))
	return sub, nil
}

// Wait blocks until every COMMS query in flight has been answered.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) respond(ctx context.Context, msg *comms.Msg) {
	resp := s.HandleQueryMessage(ctx, msg.Data)
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - response encode: %v", commsLogPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn(fmt.Sprintf("%s - respond to %s: %v", commsLogPrefix, resp.ID, err))
	}
}

// HandleQueryMessage decodes one request envelope, runs it and builds the reply.
func (s *Server) HandleQueryMessage(ctx context.Context, data []byte) *dispatcher.QueryResponse {
	var req dispatcher.QueryRequest
	if err := commsutil.DecodePayload(data, &req); err != nil {
		return &dispatcher.QueryResponse{
			Ok:    false,
			Error: &dispatcher.ErrorDetail{Code: codeInvalidRequest, Message: "invalid request payload"},
		}
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return &dispatcher.QueryResponse{
			ID:    req.ID,
			Ok:    false,
			Error: &dispatcher.ErrorDetail{Code: codeInvalidRequest, Message: "question is required"},
		}
	}

	res, err := s.runner.Run(ctx, question, req.Ctx.RequestContext())
	if err != nil {
		resp := &dispatcher.QueryResponse{
			ID: req.ID,
			Ok: false,
			Error: &dispatcher.ErrorDetail{
				Code:      orchestrator.ErrorCode(err),
				Message:   orchestrator.Diagnostic(err),
				Retryable: orchestrator.IsRetryable(err),
			},
		}
		if res != nil {
			resp.RunID = res.RunID
			resp.Outcome = res.Outcome
		}
		slog.Error(fmt.Sprintf("%s - query %s failed (%s): %v", commsLogPrefix, req.ID, resp.Error.Code, err))
		return resp
	}
	return &dispatcher.QueryResponse{
		ID:      req.ID,
		Ok:      true,
		RunID:   res.RunID,
		Answer:  res.Answer,
		Outcome: res.Outcome,
	}
}
