package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/members"
)

const logPrefix = "dispatcher:dispatch"

// handler runs one capability with decoded arguments and the request scope.
type handler func(ctx context.Context, args json.RawMessage, rc RequestContext) (interface{}, error)

// Dispatcher routes capability calls to member service methods. Its routing
// table is fixed at construction and covers exactly the catalog's capabilities.
type Dispatcher struct {
	catalog *catalog.Catalog
	members *members.Service
	strict  bool
	table   map[catalog.Capability]handler
}

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	Catalog *catalog.Catalog
	Members *members.Service
	// StrictArguments validates arguments against the catalog schema before dispatch.
	StrictArguments bool
}

// NewDispatcher creates a Dispatcher whose routing table mirrors the catalog.
func NewDispatcher(params NewDispatcherParams) (*Dispatcher, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("%s - catalog is required", logPrefix)
	}
	if params.Members == nil {
		return nil, fmt.Errorf("%s - member service is required", logPrefix)
	}

	d := &Dispatcher{
		catalog: params.Catalog,
		members: params.Members,
		strict:  params.StrictArguments,
	}

	handlers := d.handlers()
	d.table = make(map[catalog.Capability]handler, params.Catalog.Len())
	for _, desc := range params.Catalog.List() {
		h, ok := handlers[desc.Capability()]
		if !ok {
			return nil, fmt.Errorf("%s - no handler for capability %q", logPrefix, desc.Name)
		}
		d.table[desc.Capability()] = h
	}
	return d, nil
}

func (d *Dispatcher) handlers() map[catalog.Capability]handler {
	return map[catalog.Capability]handler{
		catalog.GetEligibility:              d.handleGetEligibility,
		catalog.GetClaims:                   d.handleGetClaims,
		catalog.GetHCCs:                     d.handleGetHCCs,
		catalog.GetMembersByEligibilityYear: d.handleGetMembersByEligibilityYear,
		catalog.GetAllMembers:               d.handleGetAllMembers,
		catalog.GetMembersByDeltaRiskScore:  d.handleGetMembersByDeltaRiskScore,
	}
}

// Routes returns the routed capabilities in catalog order.
func (d *Dispatcher) Routes() []catalog.Capability {
	out := make([]catalog.Capability, 0, len(d.table))
	for _, desc := range d.catalog.List() {
		if _, ok := d.table[desc.Capability()]; ok {
			out = append(out, desc.Capability())
		}
	}
	return out
}

// Dispatch invokes the capability bound to name with args, scoped by rc, and
// returns its JSON-encoded result. Every failure is an *ExecutionError.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]interface{}, rc RequestContext) (json.RawMessage, error) {
	slog.Debug(fmt.Sprintf("%s - capability=%s healthPlanId=%s yearOfService=%d", logPrefix, name, rc.HealthPlanID, rc.YearOfService))

	h, ok := d.table[catalog.Capability(name)]
	if !ok {
		return nil, &ExecutionError{Capability: name, Cause: errors.New("no route for capability")}
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &ExecutionError{Capability: name, Cause: fmt.Errorf("encode arguments: %w", err)}
	}
	if d.strict {
		if err := d.catalog.Validate(name, raw); err != nil {
			return nil, &ExecutionError{Capability: name, Cause: err}
		}
	}

	result, err := h(ctx, raw, rc)
	if err != nil {
		return nil, &ExecutionError{Capability: name, Cause: err}
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, &ExecutionError{Capability: name, Cause: fmt.Errorf("encode result: %w", err)}
	}
	return payload, nil
}

func (d *Dispatcher) handleGetEligibility(ctx context.Context, args json.RawMessage, rc RequestContext) (interface{}, error) {
	var input members.EligibilityInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, invalidArguments(catalog.GetEligibility, err)
	}
	input.Scope = rc.Scope()
	return d.members.GetEligibility(ctx, &input)
}

func (d *Dispatcher) handleGetClaims(ctx context.Context, args json.RawMessage, rc RequestContext) (interface{}, error) {
	var input members.MemberNameInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, invalidArguments(catalog.GetClaims, err)
	}
	input.Scope = rc.Scope()
	return d.members.GetClaims(ctx, &input)
}

func (d *Dispatcher) handleGetHCCs(ctx context.Context, args json.RawMessage, rc RequestContext) (interface{}, error) {
	var input members.MemberNameInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, invalidArguments(catalog.GetHCCs, err)
	}
	input.Scope = rc.Scope()
	return d.members.GetHCCs(ctx, &input)
}

func (d *Dispatcher) handleGetMembersByEligibilityYear(ctx context.Context, args json.RawMessage, rc RequestContext) (interface{}, error) {
	var input members.EligibilityYearInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, invalidArguments(catalog.GetMembersByEligibilityYear, err)
	}
	input.Scope = rc.Scope()
	return d.members.GetMembersByEligibilityYear(ctx, &input)
}

func (d *Dispatcher) handleGetAllMembers(ctx context.Context, args json.RawMessage, rc RequestContext) (interface{}, error) {
	var input members.ListMembersInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, invalidArguments(catalog.GetAllMembers, err)
	}
	input.Scope = rc.Scope()
	return d.members.GetAllMembers(ctx, &input)
}

func (d *Dispatcher) handleGetMembersByDeltaRiskScore(ctx context.Context, args json.RawMessage, rc RequestContext) (interface{}, error) {
	var input members.DeltaRiskScoreInput
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, invalidArguments(catalog.GetMembersByDeltaRiskScore, err)
	}
	input.Scope = rc.Scope()
	return d.members.GetMembersByDeltaRiskScore(ctx, &input)
}

// --- helpers ---

func invalidArguments(c catalog.Capability, err error) error {
	return &members.MemberError{
		Code:    members.CodeInvalidArgument,
		Message: fmt.Sprintf("Failed to parse %s arguments", c),
		Cause:   err,
	}
}
