package metrics

import (
	"bikeshare-backend/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RentalsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikeshare_rentals_started_total",
		Help: "Total number of rentals created, by path (direct or handoff).",
	},
		[]string{"path"},
	)

	WaitlistJoinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bikeshare_waitlist_joins_total",
		Help: "Total number of waiting-list entries created.",
	})

	BikeReturnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bikeshare_bike_returns_total",
		Help: "Total number of rentals closed by a return.",
	})

	PurchasesCheckedOutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bikeshare_purchases_checked_out_total",
		Help: "Total number of purchases created from a basket.",
	})

	SalePaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikeshare_sale_payments_total",
		Help: "Total number of purchase payment attempts, by outcome.",
	},
		[]string{"outcome"},
	)

	RentalPaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikeshare_rental_payments_total",
		Help: "Total number of rental payment attempts, by outcome.",
	},
		[]string{"outcome"},
	)

	NotificationsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikeshare_notifications_dispatched_total",
		Help: "Total number of notification deliveries, by channel and outcome.",
	},
		[]string{"channel", "outcome"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bikeshare_operation_errors_total",
		Help: "Total number of errors encountered during specific operations.",
	},
		[]string{"operation", "kind"},
	)
)

// ObserveError counts err against operation. Non-domain errors are counted
// under kind "INTERNAL".
func ObserveError(operation string, err error) {
	if err == nil {
		return
	}
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "INTERNAL"
	}
	OperationErrorsTotal.WithLabelValues(operation, kind).Inc()
}

// Outcome labels a payment attempt.
func Outcome(err error) string {
	if err == nil {
		return "paid"
	}
	switch domain.KindOf(err) {
	case domain.ErrorKindBusinessRule, domain.ErrorKindValidation, domain.ErrorKindNotFound:
		return "rejected"
	case domain.ErrorKindTransient:
		return "transient"
	}
	return "error"
}
