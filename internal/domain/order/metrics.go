package order

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type serviceMetrics struct {
	ordersCreated     metric.Int64Counter
	paymentsDeclined  metric.Int64Counter
	statusTransitions metric.Int64Counter
}

func newServiceMetrics(meter metric.Meter) serviceMetrics {
	return serviceMetrics{
		ordersCreated: counter(meter, "kart.orders.created",
			"Orders created after a confirmed payment"),
		paymentsDeclined: counter(meter, "kart.payments.declined",
			"Payment confirmations that were declined or failed"),
		statusTransitions: counter(meter, "kart.orders.status_transitions",
			"Order status changes recorded in the history"),
	}
}

// counter returns a no-op instrument when registration fails.
func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
