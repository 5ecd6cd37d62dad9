package service

import (
	"fmt"
	"sort"
	"strings"

	"bikeshare-backend/internal/domain"
)

// EligibilityPolicy decides whether seller may list bike for sale given how
// many times the bike has been rented.
type EligibilityPolicy func(seller domain.ProviderRef, bike *domain.Bike, rentalCount int64) error

const (
	PolicyCorpWithHistory  = "corp_with_history"
	PolicyOwnerWithHistory = "owner_with_history"
)

var eligibilityPolicies = map[string]EligibilityPolicy{
	PolicyCorpWithHistory: func(seller domain.ProviderRef, bike *domain.Bike, rentalCount int64) error {
		if !seller.Kind.IsCorporate() {
			return domain.BusinessRule("only the corporate fleet can list bikes for sale")
		}
		return ownerWithHistory(seller, bike, rentalCount)
	},
	PolicyOwnerWithHistory: ownerWithHistory,
}

func ownerWithHistory(seller domain.ProviderRef, bike *domain.Bike, rentalCount int64) error {
	if rentalCount < 1 {
		return domain.BusinessRule("bike must have been rented at least once to be sold")
	}
	if !bike.Provider.Equal(seller) {
		return domain.BusinessRule("you can only list your own bikes for sale")
	}
	return nil
}

// LookupEligibilityPolicy resolves a policy by its configured name.
func LookupEligibilityPolicy(name string) (EligibilityPolicy, error) {
	if name == "" {
		name = PolicyCorpWithHistory
	}
	p, ok := eligibilityPolicies[name]
	if !ok {
		names := make([]string, 0, len(eligibilityPolicies))
		for n := range eligibilityPolicies {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown eligibility policy %q (want one of %s)", name, strings.Join(names, ", "))
	}
	return p, nil
}
