package enrich

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jobradar/harvester/internal/harvest"
)

// EmailValidator checks scraped contact addresses and clears the ones that
// do not parse. Scraped pages routinely carry obfuscated or truncated
// addresses; keeping them would poison downstream outreach.
type EmailValidator struct{}

// NewEmailValidator builds the validator.
func NewEmailValidator() *EmailValidator { return &EmailValidator{} }

// Name implements harvest.Enricher.
func (v *EmailValidator) Name() string { return "email" }

// Enrich implements harvest.Enricher.
func (v *EmailValidator) Enrich(_ context.Context, result *harvest.SearchResult) error {
	raw := strings.TrimSpace(result.ContactEmail)
	if raw == "" {
		return nil
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		result.ContactEmail = ""
		return fmt.Errorf("contact email %q: %w", raw, err)
	}
	result.ContactEmail = addr.Address
	return nil
}
