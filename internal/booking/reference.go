package booking

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	ReferencePrefix   = "BUS"
	referenceLength   = 8
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewReference returns BUS followed by eight uniformly drawn [A-Z0-9] characters.
func NewReference() (string, error) {
	max := big.NewInt(int64(len(referenceAlphabet)))
	buf := make([]byte, referenceLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = referenceAlphabet[n.Int64()]
	}
	return ReferencePrefix + string(buf), nil
}

// NormalizeReference upper-cases a customer-typed reference.
func NormalizeReference(reference string) string {
	return strings.ToUpper(strings.TrimSpace(reference))
}
