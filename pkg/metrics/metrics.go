package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RequestsSent counts outbound requests handed to the protocol engine by request type
var RequestsSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_requests_sent_total",
		Help: "Total number of outbound order requests handed to the protocol engine",
	},
	[]string{"type"},
)

// SendFailures counts outbound requests that could not be transmitted
var SendFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_send_failures_total",
		Help: "Outbound requests swallowed because no session was available",
	},
	[]string{"type"},
)

// InboundEvents counts inbound application messages by message and execution type
var InboundEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_inbound_events_total",
		Help: "Inbound application messages dispatched to the adapter",
	},
	[]string{"msg_type", "exec_type"},
)

// Transitions counts applied lifecycle transitions by resulting status
var Transitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_transitions_total",
		Help: "Order status transitions applied by the lifecycle state machine",
	},
	[]string{"to"},
)

// DroppedEvents counts inbound events dropped without a transition
var DroppedEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_dropped_events_total",
		Help: "Inbound events dropped without a state transition",
	},
	[]string{"reason"},
)

// OrdersTracked is the number of orders held by the correlation store
var OrdersTracked = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "gateway_orders_tracked",
		Help: "Number of orders registered in the correlation store",
	},
)

func init() {
	prometheus.MustRegister(RequestsSent, SendFailures, InboundEvents)
	prometheus.MustRegister(Transitions, DroppedEvents, OrdersTracked)
}
