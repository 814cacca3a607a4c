package admission

import (
	"strings"

	"github.com/jobradar/harvester/internal/harvest"
)

// RejectReason names why an offer was not saved. Rejections are deliberate
// decisions, not errors; they are logged and the offer is dropped.
type RejectReason string

// Reject reasons, in rule-evaluation order.
const (
	RejectNone             RejectReason = ""
	RejectEmptyTitle       RejectReason = "empty-title"
	RejectEmptyDescription RejectReason = "empty-description"
	RejectNoLocation       RejectReason = "no-location"
	RejectEmptyCompany     RejectReason = "empty-company"
	RejectDeniedCompany    RejectReason = "denied-company"
)

// EvaluateRules applies the save/reject rules in their fixed order and
// returns the first failing rule. When the run's country is unset the
// evaluation stops after the location rule and the offer is admitted.
func EvaluateRules(result harvest.SearchResult, country string, denylist map[string][]string) RejectReason {
	if strings.TrimSpace(result.Title) == "" {
		return RejectEmptyTitle
	}
	if strings.TrimSpace(result.Description) == "" {
		return RejectEmptyDescription
	}
	if !hasLocation(result.Locations) {
		return RejectNoLocation
	}
	if country == "" {
		return RejectNone
	}
	company := strings.TrimSpace(result.CompanyName)
	if company == "" {
		return RejectEmptyCompany
	}
	if companyDenied(company, denylist[country]) {
		return RejectDeniedCompany
	}
	return RejectNone
}

func hasLocation(locations []string) bool {
	for _, loc := range locations {
		if strings.TrimSpace(loc) != "" {
			return true
		}
	}
	return false
}

// companyDenied matches case-insensitively on substrings, the same way the
// per-country denylists are maintained.
func companyDenied(company string, denied []string) bool {
	if len(denied) == 0 {
		return false
	}
	lowered := strings.ToLower(company)
	for _, entry := range denied {
		if entry == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}
