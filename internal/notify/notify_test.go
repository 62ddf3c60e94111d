package notify_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/notify"
	"ms-booking/internal/ticketqr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func paidBooking() *models.Booking {
	paidAt := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	return &models.Booking{
		ID:               "b-1",
		TripID:           "trip-1",
		PaymentReference: "BUSAB12CD34",
		AmountDue:        decimal.NewFromInt(180000),
		Status:           models.BookingPaid,
		PaidAt:           &paidAt,
		FullName:         "Dang F",
		Phone:            "0391234567",
		Email:            "f@example.com",
		SeatPreference:   "aisle",
	}
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func TestTicketPublisher(t *testing.T) {
	codec, err := ticketqr.NewCodec("k")
	require.NoError(t, err)

	var event notify.TicketIssued
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "busbooking.ticket.issued", "b-1", mock.AnythingOfType("notify.TicketIssued")).
		Run(func(args mock.Arguments) { event = args.Get(3).(notify.TicketIssued) }).
		Return(nil)

	tp := &notify.TicketPublisher{
		Publisher: pub,
		Topic:     "busbooking.ticket.issued",
		Codec:     codec,
		QRSize:    128,
		Logger:    logger.NewWithWriter(io.Discard),
	}
	trip := &models.Trip{ID: "trip-1", Name: "Ninh Binh Day Trip", DepartureAt: time.Date(2026, 3, 5, 6, 0, 0, 0, time.UTC)}
	require.NoError(t, tp.BookingPaid(context.Background(), paidBooking(), trip))
	pub.AssertExpectations(t)

	assert.Equal(t, "ticket.issued", event.EventType)
	assert.Equal(t, "Ninh Binh Day Trip", event.TripName)
	require.NotNil(t, event.DepartureAt)

	claim, err := codec.Open(event.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, "BUSAB12CD34", claim.Reference)

	png, err := base64.StdEncoding.DecodeString(event.QRPNG)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestSheetExporter(t *testing.T) {
	var row map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exp := notify.NewSheetExporter(srv.URL)
	require.NoError(t, exp.BookingPaid(context.Background(), paidBooking(), &models.Trip{Name: "Ha Giang Loop"}))
	assert.Equal(t, "BUSAB12CD34", row["reference"])
	assert.Equal(t, "Ha Giang Loop", row["trip"])
	assert.Equal(t, "180000", row["amount"])
	assert.Equal(t, "2026-03-01T10:30:00Z", row["paid_at"])

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	err := notify.NewSheetExporter(failing.URL).BookingPaid(context.Background(), paidBooking(), nil)
	assert.ErrorContains(t, err, "429")
}

type recordingDispatcher struct {
	calls int
	err   error
}

func (r *recordingDispatcher) BookingPaid(context.Context, *models.Booking, *models.Trip) error {
	r.calls++
	return r.err
}

func TestMultiRunsEverySink(t *testing.T) {
	first := &recordingDispatcher{err: errors.New("broker down")}
	second := &recordingDispatcher{}

	err := notify.Multi{first, second}.BookingPaid(context.Background(), paidBooking(), nil)
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	assert.NoError(t, notify.Multi{second}.BookingPaid(context.Background(), paidBooking(), nil))
}

func TestTicketPublisherWithoutCodec(t *testing.T) {
	pub := new(MockPublisher)
	tp := &notify.TicketPublisher{Publisher: pub, Topic: "busbooking.ticket.issued", Logger: logger.NewWithWriter(io.Discard)}

	err := tp.BookingPaid(context.Background(), paidBooking(), nil)
	assert.ErrorIs(t, err, notify.ErrNoCodec)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type panickingSink struct{}

func (panickingSink) BookingPaid(context.Context, *models.Booking, *models.Trip) error {
	panic("nil map write")
}

func TestMultiSurvivesPanickingSink(t *testing.T) {
	after := &recordingDispatcher{}

	var err error
	require.NotPanics(t, func() {
		err = notify.Multi{panickingSink{}, after}.BookingPaid(context.Background(), paidBooking(), nil)
	})
	assert.ErrorContains(t, err, "panicked: nil map write")
	assert.Equal(t, 1, after.calls)
}
