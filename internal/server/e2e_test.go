package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/member-query/internal/config"
	"github.com/morezero/member-query/internal/server"
	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/commsutil"
	"github.com/morezero/member-query/pkg/conversation"
	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/events"
	"github.com/morezero/member-query/pkg/llm"
	"github.com/morezero/member-query/pkg/members"
	"github.com/morezero/member-query/pkg/orchestrator"
)

const (
	e2eQuerySubject = "member.query.e2e"
	e2eEventSubject = "member.query.e2e.completed"
)

// ruleModel picks its next step from the question and the last transcript turn,
// so concurrent runs stay independent.
type ruleModel struct{}

func (ruleModel) Complete(_ context.Context, turns []conversation.Turn, _ []catalog.Descriptor) (*llm.Response, error) {
	question := turns[1].Text
	last := turns[len(turns)-1]

	if last.Kind == conversation.KindCapabilityResult && !strings.HasPrefix(question, "loop") {
		return &llm.Response{Text: "Answer: " + string(last.Result)}, nil
	}

	call := func(name string, args map[string]interface{}) (*llm.Response, error) {
		return &llm.Response{Call: &llm.Call{ID: fmt.Sprintf("call_%d", len(turns)), Name: name, Arguments: args}}, nil
	}
	switch {
	case strings.HasPrefix(question, "eligibility"):
		return call("get_eligibility", map[string]interface{}{"name": "Jane Doe", "year": "2024"})
	case strings.HasPrefix(question, "bogus"):
		return call("get_members_by_delta_riskscore", map[string]interface{}{"operator": "bogus", "value": 1.0})
	case strings.HasPrefix(question, "unicorn"):
		return call("get_unicorns", nil)
	case strings.HasPrefix(question, "loop"), strings.HasPrefix(question, "members"):
		return call("get_all_members", nil)
	default:
		return &llm.Response{Text: "I can only answer member questions."}, nil
	}
}

// e2eEnv holds the test environment for request/reply tests.
type e2eEnv struct {
	nc     *comms.Conn
	mu     sync.Mutex
	events []*events.RunCompletedEvent
}

func (e *e2eEnv) capturedEvents() []*events.RunCompletedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.RunCompletedEvent{}, e.events...)
}

// setupE2E starts an embedded NATS server and the query transport over an
// in-memory member store and a rule-driven model.
func setupE2E(t *testing.T) *e2eEnv {
	t.Helper()

	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("e2e_test - failed to create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("e2e_test - NATS server failed to start")
	}
	t.Cleanup(ns.Shutdown)

	serviceConn, err := commsutil.Connect(ns.ClientURL(), "member-query-e2e")
	if err != nil {
		t.Fatalf("e2e_test - service connect: %v", err)
	}
	t.Cleanup(func() { commsutil.Drain(serviceConn) })

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("e2e_test - client connect: %v", err)
	}
	t.Cleanup(nc.Close)

	env := &e2eEnv{nc: nc}
	eventSub, err := nc.Subscribe(e2eEventSubject, func(msg *comms.Msg) {
		var ev events.RunCompletedEvent
		if err := json.Unmarshal(msg.Data, &ev); err == nil {
			env.mu.Lock()
			env.events = append(env.events, &ev)
			env.mu.Unlock()
		}
	})
	if err != nil {
		t.Fatalf("e2e_test - subscribe events: %v", err)
	}
	t.Cleanup(func() { eventSub.Unsubscribe() })
	nc.Flush()

	store, err := members.LoadMemoryStore(filepath.Join("..", "..", "testdata", "members.json"))
	if err != nil {
		t.Fatalf("e2e_test - LoadMemoryStore: %v", err)
	}
	svc := members.NewService(members.NewServiceParams{Store: store})

	cfg := &config.Config{
		HealthCheckTimeout: 5 * time.Second,
		RequestTimeout:     10 * time.Second,
		MaxIterations:      6,
		StrictArguments:    true,
	}
	publisher := events.NewCommsPublisher(serviceConn, &events.CommsPublisherOpts{Subject: e2eEventSubject})
	orch, cat, err := server.BuildWithClient(cfg, svc, publisher, ruleModel{})
	if err != nil {
		t.Fatalf("e2e_test - BuildWithClient: %v", err)
	}
	s := server.New(server.Deps{Config: cfg, Runner: orch, Catalog: cat, Health: svc})

	sub, err := s.Subscribe(context.Background(), serviceConn, e2eQuerySubject)
	if err != nil {
		t.Fatalf("e2e_test - Subscribe: %v", err)
	}
	t.Cleanup(func() { sub.Unsubscribe() })
	serviceConn.Flush()

	return env
}

func (e *e2eEnv) ask(t *testing.T, req *dispatcher.QueryRequest) *dispatcher.QueryResponse {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("e2e_test - marshal: %v", err)
	}
	msg, err := e.nc.Request(e2eQuerySubject, data, 5*time.Second)
	if err != nil {
		t.Fatalf("e2e_test - request: %v", err)
	}
	var resp dispatcher.QueryResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("e2e_test - unmarshal: %v", err)
	}
	return &resp
}

func waitForEvents(t *testing.T, env *e2eEnv, n int) []*events.RunCompletedEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if got := env.capturedEvents(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("e2e_test - expected %d run events, got %d", n, len(env.capturedEvents()))
	return nil
}

func TestE2E_SingleCapabilityAnswer(t *testing.T) {
	env := setupE2E(t)

	resp := env.ask(t, &dispatcher.QueryRequest{ID: "q-1", Question: "eligibility of Jane Doe for 2024"})
	if !resp.Ok {
		t.Fatalf("e2e_test - expected ok, got error %+v", resp.Error)
	}
	if resp.ID != "q-1" || resp.Outcome != orchestrator.OutcomeCompleted || resp.RunID == "" {
		t.Errorf("e2e_test - resp = %+v", resp)
	}
	if resp.Answer != "Answer: [1,2,3,4,5,6]" {
		t.Errorf("e2e_test - answer = %q", resp.Answer)
	}

	evs := waitForEvents(t, env, 1)
	if evs[0].RunID != resp.RunID || evs[0].Iterations != 2 || evs[0].Outcome != "completed" {
		t.Errorf("e2e_test - event = %+v", evs[0])
	}
}

func TestE2E_InvalidOperatorFails(t *testing.T) {
	env := setupE2E(t)

	resp := env.ask(t, &dispatcher.QueryRequest{ID: "q-2", Question: "bogus risk"})
	if resp.Ok || resp.Error == nil {
		t.Fatalf("e2e_test - expected failure, got %+v", resp)
	}
	if resp.Error.Code != orchestrator.CodeCapabilityExecution || resp.Error.Retryable {
		t.Errorf("e2e_test - error = %+v", resp.Error)
	}
}

func TestE2E_Exhaustion(t *testing.T) {
	env := setupE2E(t)

	resp := env.ask(t, &dispatcher.QueryRequest{ID: "q-3", Question: "loop forever"})
	if !resp.Ok {
		t.Fatalf("e2e_test - exhaustion should be ok, got %+v", resp.Error)
	}
	if resp.Answer != orchestrator.FallbackMessage || resp.Outcome != orchestrator.OutcomeExhausted {
		t.Errorf("e2e_test - resp = %+v", resp)
	}

	evs := waitForEvents(t, env, 1)
	if evs[0].Iterations != orchestrator.DefaultMaxIterations || len(evs[0].Capabilities) != orchestrator.DefaultMaxIterations {
		t.Errorf("e2e_test - event = %+v", evs[0])
	}
}

func TestE2E_UnknownCapability(t *testing.T) {
	env := setupE2E(t)

	resp := env.ask(t, &dispatcher.QueryRequest{ID: "q-4", Question: "unicorn count"})
	if resp.Ok || resp.Error == nil || resp.Error.Code != orchestrator.CodeUnknownCapability {
		t.Fatalf("e2e_test - resp = %+v", resp)
	}
	if !strings.Contains(resp.Error.Message, "get_unicorns") {
		t.Errorf("e2e_test - message = %q", resp.Error.Message)
	}

	evs := waitForEvents(t, env, 1)
	if evs[0].ErrorCode != orchestrator.CodeUnknownCapability || len(evs[0].Capabilities) != 0 {
		t.Errorf("e2e_test - event = %+v", evs[0])
	}
}

func TestE2E_ScopeFromInvocationContext(t *testing.T) {
	env := setupE2E(t)

	resp := env.ask(t, &dispatcher.QueryRequest{
		ID:       "q-5",
		Question: "members in my plan",
		Ctx:      &dispatcher.InvocationContext{HealthPlanID: "H5678"},
	})
	if !resp.Ok {
		t.Fatalf("e2e_test - expected ok, got %+v", resp.Error)
	}
	if !strings.Contains(resp.Answer, "Maria Garcia") || strings.Contains(resp.Answer, "Jane Doe") {
		t.Errorf("e2e_test - scoped answer = %q", resp.Answer)
	}

	evs := waitForEvents(t, env, 1)
	if evs[0].HealthPlanID != "H5678" {
		t.Errorf("e2e_test - event scope = %+v", evs[0])
	}
}

func TestE2E_InvalidJSON(t *testing.T) {
	env := setupE2E(t)

	msg, err := env.nc.Request(e2eQuerySubject, []byte("not json"), 5*time.Second)
	if err != nil {
		t.Fatalf("e2e_test - request: %v", err)
	}
	var resp dispatcher.QueryResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("e2e_test - unmarshal: %v", err)
	}
	if resp.Ok || resp.Error == nil || resp.Error.Code != "INVALID_REQUEST" {
		t.Errorf("e2e_test - resp = %+v", resp)
	}
}

func TestE2E_ConcurrentRequests(t *testing.T) {
	env := setupE2E(t)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c-%d", i)
			data, _ := json.Marshal(&dispatcher.QueryRequest{ID: id, Question: "eligibility of Jane"})
			msg, err := env.nc.Request(e2eQuerySubject, data, 5*time.Second)
			if err != nil {
				errs <- err.Error()
				return
			}
			var resp dispatcher.QueryResponse
			if err := json.Unmarshal(msg.Data, &resp); err != nil {
				errs <- err.Error()
				return
			}
			if !resp.Ok || resp.ID != id || resp.Answer != "Answer: [1,2,3,4,5,6]" {
				errs <- fmt.Sprintf("%s: %+v", id, resp)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("e2e_test - %s", e)
	}
	waitForEvents(t, env, n)
}
