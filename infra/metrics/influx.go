package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/taskhive/dispatch/core/metrics"
	"github.com/taskhive/dispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordOfferResults writes each offer push as a line protocol point.
func (s *InfluxSink) RecordOfferResults(results []coremetrics.OfferResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range results {
		p := write.NewPointWithMeasurement("booking_offer").
			AddTag("booking_id", r.BookingID).
			AddTag("provider_id", r.ProviderID).
			AddTag("category", r.Category).
			AddTag("published", strconv.FormatBool(r.Published)).
			AddTag("component", "dispatch_manager").
			AddField("distance_km", round3(r.DistanceKm)).
			AddField("rating", round3(r.Rating)).
			SetTime(r.DispatchTime)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordAcceptResult writes one accept attempt.
func (s *InfluxSink) RecordAcceptResult(r coremetrics.AcceptResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("booking_accept").
		AddTag("booking_id", r.BookingID).
		AddTag("provider_id", r.ProviderID).
		AddTag("won", strconv.FormatBool(r.Won)).
		AddTag("component", "acceptance_arbiter").
		AddField("attempts", 1).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordReminders persists the result of a reminder sweep.
func (s *InfluxSink) RecordReminders(sent int, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("reminder_sweep").
		AddTag("component", "reminder_scheduler").
		AddField("sent", sent).
		SetTime(at)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
