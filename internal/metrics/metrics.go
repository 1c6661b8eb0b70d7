package metrics

import (
	"fmt"
	"time"

	"github.com/Brownie44l1/burst-eval/internal/logger"
	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
)

var (
	statsDClient statsd.ClientInterface = &statsd.NoOpClient{}
	samplingRate                        = 1.0
)

// InitMetrics points the package at a statsd agent. With an empty host
// metrics are dropped.
func InitMetrics(appName, host, port string, rate float64, tags ...string) {
	if host == "" {
		logger.Debug("Telegraf host not set, metrics disabled")
		return
	}
	address := host + ":" + port
	client, err := statsd.New(address, statsd.WithTags(append([]string{"service:" + appName}, tags...)))
	if err != nil {
		logger.Error("StatsD client initialization failed, metrics will be unavailable", err)
		return
	}
	statsDClient = client
	samplingRate = rate
	logger.Info(fmt.Sprintf("Metrics client initialized with telegraf address - %s and sampling rate - %f", address, rate))
}

func Close() {
	if err := statsDClient.Close(); err != nil {
		log.Warn().AnErr("error", err).Msg("Error closing statsd client")
	}
	statsDClient = &statsd.NoOpClient{}
}

func Timing(name string, value time.Duration, tags []string) {
	if err := statsDClient.Timing(name, value, tags, samplingRate); err != nil {
		log.Warn().AnErr("error", err).Msg("Error occurred while doing statsd timing")
	}
}

func Count(name string, value int64, tags []string) {
	if err := statsDClient.Count(name, value, tags, samplingRate); err != nil {
		log.Warn().AnErr("error", err).Msg("Error occurred while doing statsd count")
	}
}

func Gauge(name string, value float64, tags []string) {
	if err := statsDClient.Gauge(name, value, tags, samplingRate); err != nil {
		log.Warn().AnErr("error", err).Msg("Error occurred while doing statsd gauge")
	}
}
