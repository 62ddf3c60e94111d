package bankapi_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-booking/internal/reconcile/bankapi"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/transactions", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "Apikey k-123", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"error":0,"message":"success","data":{"records":[
			{"id":101,"tid":"FT1","description":"CK busab12cd34 thanh toan","amount":250000},
			{"id":"102","description":"salary","amount":"1000"}
		]}}`)
	}))
	defer srv.Close()

	c := bankapi.NewClient(srv.URL+"/", "k-123", 50)
	records, err := c.FetchTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "101", records[0].ID)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(250000)))
	assert.Equal(t, "102", records[1].ID)
}

func TestFetchTransactionsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Apikey good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"error":5,"message":"quota exceeded","data":null}`)
	}))
	defer srv.Close()

	_, err := bankapi.NewClient(srv.URL, "bad", 10).FetchTransactions(context.Background())
	assert.ErrorContains(t, err, "401")

	_, err = bankapi.NewClient(srv.URL, "good", 10).FetchTransactions(context.Background())
	assert.ErrorContains(t, err, "quota exceeded")
}
