package main

import (
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/checkin/checkin_api"
	"ms-booking/internal/coupon/coupon_api"
	"ms-booking/internal/logger"
	"ms-booking/internal/lottery/lottery_api"
	"ms-booking/internal/metrics"
	"ms-booking/internal/reconcile/reconcile_api"
	"ms-booking/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type handlers struct {
	Booking   *booking_api.Handler
	Reconcile *reconcile_api.Handler
	Lottery   *lottery_api.Handler
	Checkin   *checkin_api.Handler
	Coupon    *coupon_api.Handler
	Payments  *sse.PaymentStreamHandler
}

func newRouter(h handlers, verifier auth.Verifier, adminIDs []string, m *metrics.Metrics, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)
	r.Use(requestLog(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	// The bank authenticates with a shared secret, not a bearer token.
	r.Post("/api/webhooks/bank", h.Reconcile.BankWebhook)

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(verifier, log))

		r.Route("/api", func(r chi.Router) {
			r.Get("/trips", h.Booking.ListTrips)
			r.Post("/bookings", h.Booking.CreateBooking)
			r.Get("/bookings/{reference}", h.Booking.GetPaymentView)
			r.Get("/bookings/{reference}/events", h.Payments.Stream)
			r.Get("/bookings/{reference}/ticket.png", h.Checkin.TicketPNG)
			r.Get("/coupons/{code}", h.Coupon.Check)

			r.Route("/lottery", func(r chi.Router) {
				r.Get("/prizes", h.Lottery.Prizes)
				r.Post("/spin", h.Lottery.Spin)
				r.Get("/results/me", h.Lottery.MyResults)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin(adminIDs, log))

				r.Post("/trips", h.Booking.CreateTrip)
				r.Put("/trips/sale-state", h.Booking.UpdateSaleState)
				r.Delete("/trips/{tripId}", h.Booking.DeleteTrip)
				r.Get("/trips/{tripId}/bookings", h.Booking.ListTripBookings)

				r.Post("/bank/sync", h.Reconcile.Sync)

				r.Post("/checkin/scan", h.Checkin.Scan)
				r.Post("/checkin/{reference}", h.Checkin.CheckIn)

				r.Post("/coupons", h.Coupon.Provision)
				r.Get("/lottery/results", h.Lottery.AllResults)
			})
		})
	})

	return r
}

func requestLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", ww.Status()), time.Since(start).String())
		})
	}
}
