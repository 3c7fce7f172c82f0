package validation

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var phonePattern = regexp.MustCompile(`^[0-9+\-\s()]+$`)

// EmailCounter counts stored customers holding email.
type EmailCounter func(ctx context.Context, email string) (int64, error)

// EmailIsUnique reports whether no stored customer already uses email.
// The store's unique index stays the final arbiter under concurrent writers.
func EmailIsUnique(ctx context.Context, count EmailCounter, email string) (bool, error) {
	n, err := count(ctx, email)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// PhoneFormatValid accepts digits, '+', '-', whitespace and parentheses only.
func PhoneFormatValid(phone string) bool {
	return phonePattern.MatchString(phone)
}

func PriceIsPositive(price decimal.Decimal) bool {
	return price.IsPositive()
}

// PriceHasCents reports whether price carries at most two decimal places.
func PriceHasCents(price decimal.Decimal) bool {
	return price.Equal(price.Round(2))
}

func StockIsNonNegative(stock int) bool {
	return stock >= 0
}

func NameIsPresent(name string) bool {
	return strings.TrimSpace(name) != ""
}

// EmailFormatValid is a loose structural check: one '@' with text on both sides.
func EmailFormatValid(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at == strings.LastIndex(email, "@") && at < len(email)-1
}
