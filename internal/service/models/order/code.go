package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// CodePattern matches customer-facing order codes, e.g. ORD-20250829-0417.
var CodePattern = regexp.MustCompile(`^ORD-\d{8}-\d{4}$`)

var codeSuffixMax = big.NewInt(10000)

// NewCode generates a customer-facing order code from the current UTC date
// and a random 4-digit suffix. The suffix alone does not guarantee
// uniqueness; the store's unique constraint on the code column does, and
// inserts retry with a fresh code on a duplicate.
func NewCode(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, codeSuffixMax)
	if err != nil {
		return "", fmt.Errorf("failed to generate order code suffix: %w", err)
	}

	return fmt.Sprintf("ORD-%s-%04d", now.UTC().Format("20060102"), n.Int64()), nil
}
