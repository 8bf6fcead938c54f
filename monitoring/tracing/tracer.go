// Package tracing sets up the jaeger exporter for the opencensus spans
// recorded by the fork choice, blockchain and database packages.
package tracing

import (
	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

var log = logrus.WithField("prefix", "tracing")

var errEmptyServiceName = errors.New("tracing service name cannot be empty")

// Setup configures span sampling. With tracing enabled spans are exported to
// the jaeger collector at endpoint and the exporter is returned so that it
// can be flushed on shutdown. Otherwise nothing is sampled and the returned
// exporter is nil.
func Setup(name, endpoint string, sampleFraction float64, enable bool) (*jaeger.Exporter, error) {
	if !enable {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
		return nil, nil
	}
	if name == "" {
		return nil, errEmptyServiceName
	}
	if sampleFraction < 0 || sampleFraction > 1 {
		return nil, errors.Errorf("trace sample fraction %f is not within [0, 1]", sampleFraction)
	}

	trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(sampleFraction)})

	log.WithField("endpoint", endpoint).Info("Starting Jaeger exporter")
	exporter, err := jaeger.NewExporter(jaeger.Options{
		CollectorEndpoint: endpoint,
		Process: jaeger.Process{
			ServiceName: name,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create jaeger exporter")
	}
	trace.RegisterExporter(exporter)
	return exporter, nil
}
