package checkin_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"testing"
	"time"

	"ms-booking/internal/checkin"
	"ms-booking/internal/ledger"
	"ms-booking/internal/ledger/ledgertest"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/ticketqr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var gateTime = time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC)

func seed(t *testing.T, db *ledger.DB, reference string, status models.BookingStatus) *models.Booking {
	t.Helper()
	ctx := context.Background()
	if _, err := db.GetTripByID(ctx, "trip-1"); err != nil {
		require.NoError(t, db.CreateTrip(ctx, &models.Trip{
			ID: "trip-1", Name: "Hue - Da Nang", Capacity: 10,
			SaleState: models.SaleOpen, Price: decimal.NewFromInt(90000),
		}))
	}
	b := &models.Booking{
		ID:               uuid.NewString(),
		TripID:           "trip-1",
		PaymentReference: reference,
		AmountDue:        decimal.NewFromInt(90000),
		Status:           status,
		CreatedAt:        gateTime.Add(-48 * time.Hour),
		FullName:         "Tran Thi B",
		Phone:            "0987654321",
	}
	ok, err := db.ReserveSeatAndCreateBooking(ctx, b)
	require.NoError(t, err)
	require.True(t, ok)
	return b
}

func newGate(t *testing.T, db *ledger.DB) *checkin.Gate {
	t.Helper()
	codec, err := ticketqr.NewCodec("gate-secret")
	require.NoError(t, err)
	g := checkin.NewGate(db, codec, logger.NewWithWriter(io.Discard))
	g.Now = func() time.Time { return gateTime }
	return g
}

func TestCheckInOnce(t *testing.T) {
	ctx := context.Background()
	db := ledgertest.NewDB(t)
	b := seed(t, db, "BUSGATE0001", models.BookingPaid)
	g := newGate(t, db)

	first, err := g.CheckIn(ctx, "BUSGATE0001")
	require.NoError(t, err)
	assert.False(t, first.AlreadyCheckedIn)
	assert.Equal(t, b.ID, first.BookingID)
	assert.True(t, gateTime.Equal(first.CheckInAt))

	g.Now = func() time.Time { return gateTime.Add(5 * time.Minute) }
	second, err := g.CheckIn(ctx, "BUSGATE0001")
	require.NoError(t, err)
	assert.True(t, second.AlreadyCheckedIn)
	assert.True(t, gateTime.Equal(second.CheckInAt), "repeat must report the original admission")

	stored, err := db.GetBookingByReference(ctx, "BUSGATE0001")
	require.NoError(t, err)
	require.NotNil(t, stored.CheckInAt)
	assert.True(t, gateTime.Equal(*stored.CheckInAt))
}

func TestCheckInRejections(t *testing.T) {
	ctx := context.Background()
	db := ledgertest.NewDB(t)
	seed(t, db, "BUSPEND0001", models.BookingPending)
	seed(t, db, "BUSCANC0001", models.BookingCancelled)
	g := newGate(t, db)

	_, err := g.CheckIn(ctx, "BUSNONE0001")
	assert.ErrorIs(t, err, checkin.ErrBookingNotFound)
	_, err = g.CheckIn(ctx, "BUSPEND0001")
	assert.ErrorIs(t, err, checkin.ErrNotPaid)
	_, err = g.CheckIn(ctx, "BUSCANC0001")
	assert.ErrorIs(t, err, checkin.ErrCancelled)

	pending, err := db.GetBookingByReference(ctx, "BUSPEND0001")
	require.NoError(t, err)
	assert.Nil(t, pending.CheckInAt)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListBookingsByReference(ctx context.Context, reference string) ([]models.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockStore) SetCheckIn(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func TestCheckInPrefersUncheckedBooking(t *testing.T) {
	earlier := gateTime.Add(-time.Hour)
	store := new(MockStore)
	store.On("ListBookingsByReference", mock.Anything, "BUSDUPE0001").Return([]models.Booking{
		{ID: "b1", PaymentReference: "BUSDUPE0001", Status: models.BookingPaid, CheckInAt: &earlier},
		{ID: "b2", PaymentReference: "BUSDUPE0001", Status: models.BookingPaid},
	}, nil)
	store.On("SetCheckIn", mock.Anything, "b2", gateTime).Return(nil)

	g := checkin.NewGate(store, nil, logger.NewWithWriter(io.Discard))
	g.Now = func() time.Time { return gateTime }

	record, err := g.CheckIn(context.Background(), "BUSDUPE0001")
	require.NoError(t, err)
	assert.Equal(t, "b2", record.BookingID)
	assert.False(t, record.AlreadyCheckedIn)
	store.AssertExpectations(t)
}

func TestCheckInStoreFailure(t *testing.T) {
	store := new(MockStore)
	store.On("ListBookingsByReference", mock.Anything, "BUSFAIL0001").Return(nil, errors.New("connection reset"))

	g := checkin.NewGate(store, nil, logger.NewWithWriter(io.Discard))
	_, err := g.CheckIn(context.Background(), "BUSFAIL0001")
	require.Error(t, err)
	assert.NotErrorIs(t, err, checkin.ErrBookingNotFound)
}

func TestScanAndTicket(t *testing.T) {
	ctx := context.Background()
	db := ledgertest.NewDB(t)
	b := seed(t, db, "BUSSCAN0001", models.BookingPaid)
	seed(t, db, "BUSSCAN0002", models.BookingPending)
	g := newGate(t, db)
	g.QRSize = 128

	img, err := g.TicketPNG(ctx, "BUSSCAN0001")
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 128, decoded.Bounds().Dx())

	_, err = g.TicketPNG(ctx, "BUSSCAN0002")
	assert.ErrorIs(t, err, checkin.ErrNotPaid)

	payload, err := g.Codec.Seal(ticketqr.Claim{Reference: "BUSSCAN0001", BookingID: b.ID, TripID: b.TripID})
	require.NoError(t, err)
	record, err := g.Scan(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, b.ID, record.BookingID)
	assert.False(t, record.AlreadyCheckedIn)

	_, err = g.Scan(ctx, "not-a-ticket")
	assert.ErrorIs(t, err, checkin.ErrInvalidTicket)

	other, err := ticketqr.NewCodec("someone-else")
	require.NoError(t, err)
	forged, err := other.Seal(ticketqr.Claim{Reference: "BUSSCAN0001"})
	require.NoError(t, err)
	_, err = g.Scan(ctx, forged)
	assert.ErrorIs(t, err, checkin.ErrInvalidTicket)
}

func TestScanWithoutCodec(t *testing.T) {
	g := checkin.NewGate(ledgertest.NewDB(t), nil, logger.NewWithWriter(io.Discard))
	_, err := g.Scan(context.Background(), "anything")
	assert.ErrorIs(t, err, checkin.ErrScanDisabled)
}
