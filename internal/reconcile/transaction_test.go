package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReferences(t *testing.T) {
	cases := map[string][]string{
		"CK BUSAB12CD34 thanh toan":       {"BUSAB12CD34"},
		"busab12cd34":                     {"BUSAB12CD34"},
		"MBVCB.123.BUS0000ZZZZ.CT tu ...": {"BUS0000ZZZZ"},
		"busines5pay BUSAB12CD34":         {"BUSINES5PAY", "BUSAB12CD34"},
		"BUS123":                          nil,
		"nop tien":                        nil,
	}
	for desc, want := range cases {
		assert.Equal(t, want, ExtractReferences(desc), desc)
	}
}

func TestParseBatch(t *testing.T) {
	batch, err := ParseBatch([]byte(`{"error":0,"data":[{"id":7,"description":"BUSAB12CD34","amount":150000,"when":"2026-01-02 10:00:00"}]}`))
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "7", batch[0].ID)
	assert.True(t, batch[0].Amount.Equal(decimal.NewFromInt(150000)))

	batch, err = ParseBatch([]byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.Empty(t, batch)

	for _, body := range []string{`{`, `{}`, `{"data":null}`, `{"data":{"id":1}}`, `[]`} {
		_, err := ParseBatch([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedBatch, body)
	}
}
