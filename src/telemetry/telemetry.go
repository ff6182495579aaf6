// Package telemetry publishes scan daemon notifications to nostr relays.
package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"

	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

// KindPnoNetworkFound is an ephemeral event kind announcing that an offload
// scan spotted one of the configured preferred networks.
const KindPnoNetworkFound = 20777

var relayRequestSemaphore = make(chan struct{}, 5) // Allow up to 5 concurrent requests

func rateLimitedRelayRequest(relay *nostr.Relay, event nostr.Event) error {
	relayRequestSemaphore <- struct{}{}
	defer func() { <-relayRequestSemaphore }()

	return relay.Publish(context.Background(), event)
}

// Publisher signs and publishes telemetry events.
type Publisher struct {
	privateKey string
	relays     []string
	pool       *nostr.SimplePool
}

// NewPublisher creates a Publisher. A fresh private key is generated when the
// config does not carry one.
func NewPublisher(privateKey string, relays []string) *Publisher {
	if privateKey == "" {
		privateKey = nostr.GeneratePrivateKey()
		logger.Info("No telemetry private key configured, generated an ephemeral one")
	}
	return &Publisher{
		privateKey: privateKey,
		relays:     relays,
		pool:       nostr.NewSimplePool(context.Background()),
	}
}

// BuildPnoFoundEvent creates a signed event describing the networks found on
// the given interface.
func (p *Publisher) BuildPnoFoundEvent(ifaceName string, results []scan_scheduler.ScanResult) (*nostr.Event, error) {
	tags := nostr.Tags{
		{"interface", ifaceName},
	}
	for _, result := range results {
		tags = append(tags, nostr.Tag{
			"network", result.SSID, result.BSSID, strconv.Itoa(result.SignalDBm),
		})
	}

	event := nostr.Event{
		Kind:      KindPnoNetworkFound,
		Tags:      tags,
		Content:   "",
		CreatedAt: nostr.Now(),
	}
	if err := event.Sign(p.privateKey); err != nil {
		return nil, fmt.Errorf("error signing pno event: %v", err)
	}
	return &event, nil
}

// PublishPnoFound builds and publishes a network-found event to every
// configured relay. Relay failures are logged, not returned.
func (p *Publisher) PublishPnoFound(ifaceName string, results []scan_scheduler.ScanResult) error {
	event, err := p.BuildPnoFoundEvent(ifaceName, results)
	if err != nil {
		return err
	}

	for _, relayURL := range p.relays {
		relay, err := p.pool.EnsureRelay(relayURL)
		if err != nil {
			logger.WithError(err).WithField("relay", relayURL).Warn("Failed to connect to relay")
			continue
		}
		if err := rateLimitedRelayRequest(relay, *event); err != nil {
			logger.WithError(err).WithField("relay", relayURL).Warn("Failed to publish pno event")
			continue
		}
		logger.WithFields(logrus.Fields{
			"relay":    relayURL,
			"event_id": event.ID,
		}).Debug("Published pno event")
	}
	return nil
}
