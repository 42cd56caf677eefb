package config

import (
	"fmt"
	"strings"
)

// ValidateCore ensures critical configuration is present.
func (c *Config) ValidateCore() error {
	var missing []string

	switch c.Ledger.Backend {
	case LedgerBackendMemory:
	case LedgerBackendPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		missing = append(missing, "PROVIDER_API_KEY")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Pricing.MarkupPercent.IsNegative() {
		return fmt.Errorf("MARKUP_PERCENT must not be negative, got %s", c.Pricing.MarkupPercent)
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.Order.MaxQuantity > 0 && c.Order.MinQuantity > c.Order.MaxQuantity {
		return fmt.Errorf("ORDER_MIN_QUANTITY %d exceeds ORDER_MAX_QUANTITY %d", c.Order.MinQuantity, c.Order.MaxQuantity)
	}

	return nil
}
