package db

import (
	"encoding/json"
	"time"
)

// Member represents a row in the members table.
type Member struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	DOB            *time.Time       `json:"dob,omitempty"`
	HealthPlanID   *string          `json:"health_plan_id,omitempty"`
	YearOfService  *int             `json:"year_of_service,omitempty"`
	DeltaRiskScore *float64         `json:"delta_risk_score,omitempty"`
	EligibleYears  map[string][]int `json:"eligible_years"`
	Claims         []Claim          `json:"claims"`
	MOR            json.RawMessage  `json:"mor,omitempty"`
	Created        time.Time        `json:"created"`
	Modified       time.Time        `json:"modified"`
}

// Claim is one element of the members.claims JSONB array.
type Claim struct {
	ClaimID           string            `json:"claimId"`
	TotalChargeAmount string            `json:"totalChargeAmount"`
	ClaimStatus       string            `json:"claimStatus"`
	CPTCode           []string          `json:"cptCode,omitempty"`
	Diagnosis         []string          `json:"diagnosis,omitempty"`
	HCCMap            map[string]string `json:"hcc_map,omitempty"`
}

// MemberFilter narrows member queries to a health plan and/or year of service.
// Zero values mean "not filtered".
type MemberFilter struct {
	HealthPlanID  string
	YearOfService int
}

// MemberDocument is the seed file shape of a member (one element of the JSON array).
type MemberDocument struct {
	MBI            string           `json:"MBI"`
	Name           string           `json:"Name"`
	DOB            string           `json:"DOB,omitempty"`
	HealthPlanID   string           `json:"healthPlanId,omitempty"`
	YearOfService  int              `json:"yearOfService,omitempty"`
	DeltaRiskScore *float64         `json:"deltaRiskScore,omitempty"`
	EligibleYear   map[string][]int `json:"eligible_year,omitempty"`
	Claims         []Claim          `json:"Claims,omitempty"`
	MOR            json.RawMessage  `json:"MOR,omitempty"`
}
