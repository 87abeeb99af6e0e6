package valueobject

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	fourDigitsRegex = regexp.MustCompile(`^\d{4}$`)
	panRegex        = regexp.MustCompile(`^\d{13,19}$`)
	expiryRegex     = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2}|\d{4})$`)
)

// CardNumber holds the masked card information.
// The full PAN is never retained, only the last four digits plus expiry.
type CardNumber struct {
	lastFour    string
	expiryMonth string
	expiryYear  string
}

// NewCardNumber creates a validated CardNumber from already-masked parts.
// lastFour must be exactly 4 digits, expiryMonth 01-12, expiryYear 4 digits.
func NewCardNumber(lastFour, expiryMonth, expiryYear string) (CardNumber, error) {
	if !fourDigitsRegex.MatchString(lastFour) {
		return CardNumber{}, fmt.Errorf("last four must be exactly 4 digits, got: %q", lastFour)
	}

	month, err := strconv.Atoi(expiryMonth)
	if err != nil || month < 1 || month > 12 {
		return CardNumber{}, fmt.Errorf("expiry month must be 01-12, got: %q", expiryMonth)
	}

	if !fourDigitsRegex.MatchString(expiryYear) {
		return CardNumber{}, fmt.Errorf("expiry year must be exactly 4 digits, got: %q", expiryYear)
	}

	return CardNumber{
		lastFour:    lastFour,
		expiryMonth: fmt.Sprintf("%02d", month),
		expiryYear:  expiryYear,
	}, nil
}

// ParseCardNumber validates a full PAN (digits, optional spaces or dashes)
// with the Luhn checksum and an expiry in MM/YY or MM/YYYY form, and keeps
// only the masked parts.
func ParseCardNumber(pan, expiry string) (CardNumber, error) {
	digits := strings.NewReplacer(" ", "", "-", "").Replace(pan)
	if !panRegex.MatchString(digits) {
		return CardNumber{}, fmt.Errorf("card number must be 13-19 digits")
	}
	if !luhnValid(digits) {
		return CardNumber{}, fmt.Errorf("card number failed checksum")
	}

	m := expiryRegex.FindStringSubmatch(strings.TrimSpace(expiry))
	if m == nil {
		return CardNumber{}, fmt.Errorf("expiry must be MM/YY or MM/YYYY, got: %q", expiry)
	}
	year := m[2]
	if len(year) == 2 {
		year = "20" + year
	}

	return NewCardNumber(digits[len(digits)-4:], m[1], year)
}

// LastFour returns the last four digits of the card number.
func (cn CardNumber) LastFour() string {
	return cn.lastFour
}

// ExpiryMonth returns the expiry month ("01" through "12").
func (cn CardNumber) ExpiryMonth() string {
	return cn.expiryMonth
}

// ExpiryYear returns the four-digit expiry year.
func (cn CardNumber) ExpiryYear() string {
	return cn.expiryYear
}

// Expiry returns the expiry as MM/YYYY.
func (cn CardNumber) Expiry() string {
	return cn.expiryMonth + "/" + cn.expiryYear
}

// IsExpired reports whether the card is past the last day of its expiry month.
func (cn CardNumber) IsExpired(now time.Time) bool {
	year, err := strconv.Atoi(cn.expiryYear)
	if err != nil {
		return true
	}
	month, err := strconv.Atoi(cn.expiryMonth)
	if err != nil {
		return true
	}

	expiryEnd := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC)
	return !now.UTC().Before(expiryEnd)
}

// IsZero reports whether the value was never initialised.
func (cn CardNumber) IsZero() bool {
	return cn.lastFour == ""
}

// Masked returns a masked card representation like **** **** **** 1234.
func (cn CardNumber) Masked() string {
	return "**** **** **** " + cn.lastFour
}

// String returns the masked representation.
func (cn CardNumber) String() string {
	return cn.Masked()
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
