package catalog

import "github.com/morezero/member-query/pkg/members"

// DefaultEntries returns the compiled-in capability entries in advertised order.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Capability:  GetEligibility,
			Description: "Get member eligibility (eligible months) for a given year",
			Arguments:   members.EligibilityInput{},
		},
		{
			Capability:  GetClaims,
			Description: "Get all claims for a member",
			Arguments:   members.MemberNameInput{},
		},
		{
			Capability:  GetHCCs,
			Description: "Get all HCC codes (disease coefficients) for a member",
			Arguments:   members.MemberNameInput{},
		},
		{
			Capability:  GetMembersByEligibilityYear,
			Description: "Get all members eligible for a given year",
			Arguments:   members.EligibilityYearInput{},
		},
		{
			Capability:  GetAllMembers,
			Description: "Get all members (up to an optional limit, default 50)",
			Arguments:   members.ListMembersInput{},
		},
		{
			Capability:  GetMembersByDeltaRiskScore,
			Description: "Get members whose delta risk score is less than (lt), less than or equal (lte), equal (eq), greater than or equal (gte) or greater than (gt) a value",
			Arguments:   members.DeltaRiskScoreInput{},
		},
	}
}

// Default builds the catalog from DefaultEntries.
func Default() (*Catalog, error) {
	return New(DefaultEntries())
}
