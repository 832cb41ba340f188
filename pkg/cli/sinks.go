package cli

import (
	"fmt"
	"os"

	"github.com/nordichpc/sonar/pkg/config"
	"github.com/nordichpc/sonar/pkg/defaults"
	"github.com/nordichpc/sonar/pkg/sink"
)

// buildSink constructs the single configured sink variant.
func buildSink(cfg *config.Config, onBackoffRetry func()) (sink.Sink, error) {
	switch cfg.Sink {
	case config.SinkDirectory:
		return sink.NewDirectory(cfg.Directory.Root)
	case config.SinkStdio:
		return sink.NewStdio(os.Stdout), nil
	case config.SinkBroker:
		return sink.NewBroker(sink.BrokerConfig{
			Endpoint:       cfg.Broker.Endpoint,
			TopicPrefix:    cfg.Broker.TopicPrefix,
			SASLUser:       cfg.Broker.SASLUser,
			SASLPassword:   cfg.Broker.SASLPass,
			PendingLimit:   defaults.BrokerPendingLimit,
			InitialBackoff: defaults.BrokerInitialBackoff,
			MaxBackoff:     defaults.BrokerMaxBackoff,
			OnBackoffRetry: onBackoffRetry,
		}), nil
	default:
		return nil, fmt.Errorf("config: unknown sink kind %q", cfg.Sink)
	}
}
