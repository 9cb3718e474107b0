package scheduler

import "github.com/prometheus/client_golang/prometheus"

var remindersSent = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "booking_reminders_sent_total",
	Help: "Number of reminder notifications recorded by the sweep",
})

func init() {
	prometheus.MustRegister(remindersSent)
}
