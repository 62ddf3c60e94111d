package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/ledger"
	"ms-booking/internal/logger"
	"ms-booking/internal/metrics"
	"ms-booking/internal/models"
)

type Outcome string

const (
	OutcomeMatched     Outcome = "MATCHED"
	OutcomeUnderpaid   Outcome = "UNDERPAID"
	OutcomeAlreadyPaid Outcome = "ALREADY_PAID"
	OutcomeNoMatch     Outcome = "NO_MATCH"
	// OutcomeError marks a transaction the store could not evaluate; it is
	// safe to replay the batch.
	OutcomeError Outcome = "ERROR"
)

type Store interface {
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	GetTripByID(ctx context.Context, id string) (*models.Trip, error)
	MarkBookingPaid(ctx context.Context, id string, paidAt time.Time) (bool, error)
}

// Dispatcher runs the side effects of a confirmed payment. Failures never undo PAID.
type Dispatcher interface {
	BookingPaid(ctx context.Context, booking *models.Booking, trip *models.Trip) error
}

// Source supplies transactions for a pull sync.
type Source interface {
	FetchTransactions(ctx context.Context) ([]TransactionRecord, error)
}

type Entry struct {
	TransactionID string  `json:"transaction_id"`
	Reference     string  `json:"reference,omitempty"`
	Outcome       Outcome `json:"outcome"`
	Detail        string  `json:"detail,omitempty"`
}

type Report struct {
	Entries []Entry         `json:"entries"`
	Counts  map[Outcome]int `json:"counts"`
}

func (r *Report) add(e Entry) {
	r.Entries = append(r.Entries, e)
	r.Counts[e.Outcome]++
}

type Engine struct {
	Store      Store
	Dispatcher Dispatcher
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

func NewEngine(store Store, dispatcher Dispatcher, log *logger.Logger) *Engine {
	return &Engine{Store: store, Dispatcher: dispatcher, Logger: log, Now: time.Now}
}

// Reconcile evaluates every transaction independently. The returned error is
// non-nil only when the store failed for some transaction; the report is
// complete either way.
func (e *Engine) Reconcile(ctx context.Context, batch []TransactionRecord) (*Report, error) {
	report := &Report{Entries: make([]Entry, 0, len(batch)), Counts: map[Outcome]int{}}
	var errs []error

	for _, txn := range batch {
		entry, err := e.apply(ctx, txn)
		if err != nil {
			errs = append(errs, fmt.Errorf("transaction %s: %w", txn.ID, err))
		}
		report.add(entry)
		e.Metrics.ReconcileOutcome(string(entry.Outcome))
	}

	e.Logger.Info("RECONCILE", fmt.Sprintf("batch of %d: matched=%d underpaid=%d already_paid=%d no_match=%d error=%d",
		len(batch), report.Counts[OutcomeMatched], report.Counts[OutcomeUnderpaid],
		report.Counts[OutcomeAlreadyPaid], report.Counts[OutcomeNoMatch], report.Counts[OutcomeError]))

	return report, errors.Join(errs...)
}

func (e *Engine) apply(ctx context.Context, txn TransactionRecord) (Entry, error) {
	entry := Entry{TransactionID: txn.ID}

	candidates := ExtractReferences(txn.Description)
	if len(candidates) == 0 {
		entry.Outcome = OutcomeNoMatch
		entry.Detail = "no payment reference in description"
		return entry, nil
	}

	b, err := e.findBooking(ctx, candidates)
	if errors.Is(err, ledger.ErrNotFound) {
		entry.Reference = candidates[0]
		e.Logger.LogReconcile(txn.ID, entry.Reference, "no booking for reference")
		entry.Outcome = OutcomeNoMatch
		entry.Detail = "unknown reference"
		return entry, nil
	}
	if err != nil {
		e.Logger.Error("RECONCILE", fmt.Sprintf("[txn %s] %v - lookup failed: %v", txn.ID, candidates, err))
		entry.Reference = candidates[0]
		entry.Outcome = OutcomeError
		entry.Detail = "booking lookup failed"
		return entry, err
	}
	reference := b.PaymentReference
	entry.Reference = reference

	switch b.Status {
	case models.BookingPaid:
		entry.Outcome = OutcomeAlreadyPaid
		return entry, nil
	case models.BookingCancelled:
		e.Logger.LogReconcile(txn.ID, reference, "payment for cancelled booking")
		entry.Outcome = OutcomeNoMatch
		entry.Detail = "booking cancelled"
		return entry, nil
	}

	if txn.Amount.LessThan(b.AmountDue) {
		e.Logger.LogReconcile(txn.ID, reference, fmt.Sprintf("underpaid %s < %s", txn.Amount, b.AmountDue))
		entry.Outcome = OutcomeUnderpaid
		entry.Detail = fmt.Sprintf("received %s of %s", txn.Amount.String(), b.AmountDue.String())
		return entry, nil
	}

	paidAt := e.Now().UTC()
	flipped, err := e.Store.MarkBookingPaid(ctx, b.ID, paidAt)
	if err != nil {
		e.Logger.Error("RECONCILE", fmt.Sprintf("[txn %s] %s - status update failed: %v", txn.ID, reference, err))
		entry.Outcome = OutcomeError
		entry.Detail = "status update failed"
		return entry, err
	}
	if !flipped {
		entry.Outcome = OutcomeAlreadyPaid
		entry.Detail = "settled concurrently"
		return entry, nil
	}

	b.Status = models.BookingPaid
	b.PaidAt = &paidAt
	e.Logger.LogReconcile(txn.ID, reference, fmt.Sprintf("booking %s marked PAID", b.ID))
	entry.Outcome = OutcomeMatched

	e.dispatch(ctx, txn, b)
	return entry, nil
}

// findBooking returns the booking for the first candidate the ledger knows.
func (e *Engine) findBooking(ctx context.Context, candidates []string) (*models.Booking, error) {
	for _, ref := range candidates {
		b, err := e.Store.GetBookingByReference(ctx, ref)
		if errors.Is(err, ledger.ErrNotFound) {
			continue
		}
		return b, err
	}
	return nil, ledger.ErrNotFound
}

func (e *Engine) dispatch(ctx context.Context, txn TransactionRecord, b *models.Booking) {
	if e.Dispatcher == nil {
		return
	}
	trip, err := e.Store.GetTripByID(ctx, b.TripID)
	if err != nil {
		e.Logger.Warn("RECONCILE", fmt.Sprintf("[txn %s] %s - trip %s not loaded for dispatch: %v", txn.ID, b.PaymentReference, b.TripID, err))
		trip = nil
	}
	if err := e.safeDispatch(ctx, b, trip); err != nil {
		e.Metrics.DispatchFailed()
		e.Logger.Error("RECONCILE", fmt.Sprintf("[txn %s] %s - side effects failed: %v", txn.ID, b.PaymentReference, err))
	}
}

// safeDispatch keeps a panicking sink from aborting the rest of the batch.
func (e *Engine) safeDispatch(ctx context.Context, b *models.Booking, trip *models.Trip) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher panicked: %v", r)
		}
	}()
	return e.Dispatcher.BookingPaid(ctx, b, trip)
}

// Sync pulls recent transactions from src and reconciles them.
func (e *Engine) Sync(ctx context.Context, src Source) (*Report, error) {
	batch, err := src.FetchTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	e.Logger.Info("RECONCILE", fmt.Sprintf("sync fetched %d transactions", len(batch)))
	return e.Reconcile(ctx, batch)
}
