package members

import (
	"encoding/json"
	"fmt"
)

// Sentinel payloads returned to the model instead of errors when nothing matches.
const (
	MemberNotFound = "Member not found"
)

// Error codes carried by MemberError.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL_ERROR"
)

// Scope narrows every query to a health plan and/or year of service.
// Zero values mean "not filtered".
type Scope struct {
	HealthPlanID  string `json:"healthPlanId,omitempty"`
	YearOfService int    `json:"yearOfService,omitempty"`
}

// =========================================================================
// INPUTS
// =========================================================================

// EligibilityInput is the input for get_eligibility.
type EligibilityInput struct {
	Name  string `json:"name" jsonschema:"description=Member full name"`
	Year  string `json:"year" jsonschema:"description=Year for eligibility (e.g. 2024)"`
	Scope Scope  `json:"-"`
}

// MemberNameInput is the input for get_claims and get_hccs.
type MemberNameInput struct {
	Name  string `json:"name" jsonschema:"description=Member full name"`
	Scope Scope  `json:"-"`
}

// EligibilityYearInput is the input for get_members_by_eligibility_year.
type EligibilityYearInput struct {
	Year  string `json:"year" jsonschema:"description=Eligibility year (e.g. 2024)"`
	Scope Scope  `json:"-"`
}

// ListMembersInput is the input for get_all_members.
type ListMembersInput struct {
	Limit *int  `json:"limit,omitempty" jsonschema:"description=Maximum number of members to return,minimum=1,maximum=500"`
	Scope Scope `json:"-"`
}

// DeltaRiskScoreInput is the input for get_members_by_delta_riskscore.
type DeltaRiskScoreInput struct {
	Operator string  `json:"operator" jsonschema:"description=Comparison operator applied to the delta risk score,enum=lt,enum=lte,enum=eq,enum=gte,enum=gt"`
	Value    float64 `json:"value" jsonschema:"description=Delta risk score to compare against"`
	Scope    Scope   `json:"-"`
}

// =========================================================================
// OUTPUTS
// =========================================================================

// ClaimSummary is the claim shape returned by get_claims.
type ClaimSummary struct {
	ClaimID           string `json:"claimId"`
	TotalChargeAmount string `json:"totalChargeAmount"`
	Status            string `json:"status"`
}

// MemberSummary is the member shape returned by the listing capabilities.
type MemberSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	DateOfBirth    *string  `json:"dateOfBirth"`
	DeltaRiskScore *float64 `json:"deltaRiskScore"`
	HealthPlanID   *string  `json:"healthPlanId,omitempty"`
	YearOfService  *int     `json:"yearOfService,omitempty"`
}

// RiskScoreEntry is the member shape returned by get_members_by_delta_riskscore.
type RiskScoreEntry struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	DeltaRiskScore *float64 `json:"deltaRiskScore"`
}

// EligibilityOutput encodes as the list of eligible months, or the MemberNotFound sentinel.
type EligibilityOutput struct {
	Found  bool
	Months []int
}

// MarshalJSON implements json.Marshaler.
func (o EligibilityOutput) MarshalJSON() ([]byte, error) {
	if !o.Found {
		return json.Marshal(MemberNotFound)
	}
	return json.Marshal(nonNil(o.Months))
}

// ClaimsOutput encodes as the list of claims, or the MemberNotFound sentinel.
type ClaimsOutput struct {
	Found  bool
	Claims []ClaimSummary
}

// MarshalJSON implements json.Marshaler.
func (o ClaimsOutput) MarshalJSON() ([]byte, error) {
	if !o.Found {
		return json.Marshal(MemberNotFound)
	}
	return json.Marshal(nonNil(o.Claims))
}

// HCCsOutput encodes as the member's disease coefficients, or the MemberNotFound sentinel.
type HCCsOutput struct {
	Found        bool
	Coefficients []json.RawMessage
}

// MarshalJSON implements json.Marshaler.
func (o HCCsOutput) MarshalJSON() ([]byte, error) {
	if !o.Found {
		return json.Marshal(MemberNotFound)
	}
	return json.Marshal(nonNil(o.Coefficients))
}

// EligibleMembersOutput encodes as the member list, or "No members found for <year>".
type EligibleMembersOutput struct {
	Year    string
	Members []MemberSummary
}

// MarshalJSON implements json.Marshaler.
func (o EligibleMembersOutput) MarshalJSON() ([]byte, error) {
	if len(o.Members) == 0 {
		return json.Marshal(fmt.Sprintf("No members found for %s", o.Year))
	}
	return json.Marshal(o.Members)
}

// HealthOutput is the output of Health.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// HealthChecks holds individual health check results.
type HealthChecks struct {
	Database bool `json:"database"`
}

// =========================================================================
// ERRORS
// =========================================================================

// MemberError is a structured error from a member capability.
type MemberError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *MemberError) Error() string {
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying store error, if any.
func (e *MemberError) Unwrap() error {
	return e.Cause
}

func invalidArgument(format string, args ...interface{}) *MemberError {
	return &MemberError{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func internalError(message string, cause error) *MemberError {
	return &MemberError{Code: CodeInternal, Message: message, Cause: cause}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
