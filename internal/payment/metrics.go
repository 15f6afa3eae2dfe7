package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var paymentsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "firstdate_payments_settled_total",
	Help: "Payment transactions settled by final status",
}, []string{"status"})
