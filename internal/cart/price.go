package cart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrNoDigits      = errors.New("price has no digits")
	ErrPriceTooLarge = errors.New("price out of range")
)

var idr = message.NewPrinter(language.Indonesian)

// ParsePrice keeps only the digits of a displayed price and reads them as an
// amount in the smallest currency unit: "Rp 150.000" is 150000.
func ParsePrice(text string) (int64, error) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoDigits, text)
	}

	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPriceTooLarge, text)
	}
	return n, nil
}

// FormatRupiah renders an amount with Indonesian digit grouping, e.g. "Rp 200.000".
func FormatRupiah(amount int64) string {
	return idr.Sprintf("Rp %d", amount)
}
