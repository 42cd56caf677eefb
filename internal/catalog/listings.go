package catalog

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"smmwallet/pkg/errors"
)

// Listings reads hand-maintained category files named <category>.txt.
type Listings struct {
	dir string
}

func NewListings(dir string) *Listings {
	return &Listings{dir: dir}
}

// Category returns the non-blank lines of the named listing.
func (l *Listings) Category(name string) ([]string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, errors.ErrCategoryNotFound
	}

	f, err := os.Open(filepath.Join(l.dir, name+".txt"))
	if os.IsNotExist(err) {
		return nil, errors.ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to open category listing")
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read category listing")
	}
	if len(lines) == 0 {
		return nil, errors.ErrCategoryEmpty
	}
	return lines, nil
}

// Categories lists the available category names.
func (l *Listings) Categories() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".txt"))
	}
	return names, nil
}

// FundingInstructions tells a member where to send money for a top-up.
type FundingInstructions struct {
	Method   string `json:"method"`
	Handle   string `json:"handle"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Account  string `json:"account"`
	Note     string `json:"note"`
}

// Funding builds instructions from the configured payment handle.
type Funding struct {
	Method   string
	Handle   string
	Currency string
}

// Instructions validates amount and returns what the member should send.
// The balance only changes once an admin approves the payment.
func (f Funding) Instructions(account string, amount decimal.Decimal) (*FundingInstructions, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, errors.ErrInvalidAmount
	}
	return &FundingInstructions{
		Method:   f.Method,
		Handle:   f.Handle,
		Amount:   amount.StringFixed(2),
		Currency: f.Currency,
		Account:  account,
		Note:     "Include your account id in the payment note. An admin credits your balance once the payment arrives.",
	}, nil
}
