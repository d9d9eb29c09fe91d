package catalog

// Capability is the closed set of backend capabilities the model may request.
type Capability string

const (
	GetEligibility              Capability = "get_eligibility"
	GetClaims                   Capability = "get_claims"
	GetHCCs                     Capability = "get_hccs"
	GetMembersByEligibilityYear Capability = "get_members_by_eligibility_year"
	GetAllMembers               Capability = "get_all_members"
	GetMembersByDeltaRiskScore  Capability = "get_members_by_delta_riskscore"
)

// allCapabilities is the advertised order.
var allCapabilities = []Capability{
	GetEligibility,
	GetClaims,
	GetHCCs,
	GetMembersByEligibilityYear,
	GetAllMembers,
	GetMembersByDeltaRiskScore,
}

// All returns every known capability in catalog order.
func All() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// Parse maps a model-supplied name to a Capability.
func Parse(name string) (Capability, bool) {
	for _, c := range allCapabilities {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

func (c Capability) String() string { return string(c) }
