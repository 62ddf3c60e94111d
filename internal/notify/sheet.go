package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ms-booking/internal/models"
)

type sheetRow struct {
	Reference string `json:"reference"`
	Trip      string `json:"trip"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Seat      string `json:"seat_preference"`
	Amount    string `json:"amount"`
	PaidAt    string `json:"paid_at"`
}

// SheetExporter appends one row per paid booking through a spreadsheet
// web-app endpoint.
type SheetExporter struct {
	URL        string
	HTTPClient *http.Client
}

func NewSheetExporter(url string) *SheetExporter {
	return &SheetExporter{URL: url, HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

func (s *SheetExporter) BookingPaid(ctx context.Context, b *models.Booking, trip *models.Trip) error {
	row := sheetRow{
		Reference: b.PaymentReference,
		Trip:      b.TripID,
		FullName:  b.FullName,
		Phone:     b.Phone,
		Email:     b.Email,
		Seat:      b.SeatPreference,
		Amount:    b.AmountDue.StringFixed(0),
	}
	if trip != nil {
		row.Trip = trip.Name
	}
	if b.PaidAt != nil {
		row.PaidAt = b.PaidAt.Format(time.RFC3339)
	}

	body, err := json.Marshal(row)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheet export failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sheet export returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
