package reconcile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrMalformedBatch = errors.New("malformed transaction batch")

var referencePattern = regexp.MustCompile(`BUS[A-Z0-9]{8}`)

// TransactionRecord is one incoming bank credit. ID is only used for logs.
type TransactionRecord struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// UnmarshalJSON accepts numeric or string ids and falls back to tid.
func (t *TransactionRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		TID         string          `json:"tid"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	t.ID = strings.Trim(string(bytes.TrimSpace(raw.ID)), `"`)
	if t.ID == "" || t.ID == "null" {
		t.ID = raw.TID
	}
	t.Description = raw.Description
	t.Amount = raw.Amount
	return nil
}

// ExtractReferences returns every reference-shaped token in a free-text bank
// memo, in order. Ordinary words such as "business" can match too, so callers
// try each candidate against the ledger.
func ExtractReferences(description string) []string {
	return referencePattern.FindAllString(strings.ToUpper(description), -1)
}

// ParseBatch decodes a push payload of the form {"data":[...]}.
func ParseBatch(body []byte) ([]TransactionRecord, error) {
	var payload struct {
		Data *[]TransactionRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	if payload.Data == nil {
		return nil, fmt.Errorf("%w: missing data array", ErrMalformedBatch)
	}
	return *payload.Data, nil
}
