// Package statsd wraps the few datadog statsd calls the engine makes so the dependency lives in
// one place.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

const namespace = "lattice"

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitTickStat reports how long stage took since start.
func EmitTickStat(start time.Time, stage string) {
	duration := time.Since(start)
	err := Client().Timing("tick", duration, []string{stage}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit tick stat: %v", err)
	}
}

// EmitGauge reports the current value of name, e.g. the archetype count after a tick.
func EmitGauge(name string, value float64, tags ...string) {
	if err := Client().Gauge(name, value, tags, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit gauge %q: %v", name, err)
	}
}

// Init replaces the no-op client with one sending to address.
func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace(namespace + "."),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "failed to create statsd client")
	}
	client = newClient
	return nil
}

// Close flushes and closes the active client and falls back to the no-op client.
func Close() error {
	old := client
	client = &ddstatsd.NoOpClient{}
	return old.Close()
}
