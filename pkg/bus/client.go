package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/cdts/execution/pkg/types"
)

// Client publishes execution-core events over NATS. The core components
// never touch it; the owning service feeds it decisions and snapshots.
type Client struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// Connect dials NATS with reconnect handling and returns a publisher.
func Connect(url, clientName string) (*Client, error) {
	logger := logrus.WithField("component", "event-bus")

	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: conn, logger: logger}, nil
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// PublishRoutingDecision emits a routing decision for a symbol.
func (c *Client) PublishRoutingDecision(d types.RoutingDecision) error {
	return c.publish(RoutingDecisionSubject(d.Symbol), RoutingDecisionMessage{
		Decision:  d,
		Timestamp: time.Now().UTC(),
	})
}

// PublishSpreadOpportunities emits a spread divergence scan result.
func (c *Client) PublishSpreadOpportunities(symbol string, opps []types.SpreadDivergenceOpportunity) error {
	return c.publish(SpreadOpportunitySubject(symbol), SpreadOpportunityMessage{
		Symbol:        symbol,
		Opportunities: opps,
		Timestamp:     time.Now().UTC(),
	})
}

// PublishFundingOpportunities emits a funding carry scan result.
func (c *Client) PublishFundingOpportunities(opps []types.FundingCarryOpportunity) error {
	return c.publish(SubjectFundingOpportunity, FundingOpportunityMessage{
		Opportunities: opps,
		Timestamp:     time.Now().UTC(),
	})
}

// SubscribeFundingSnapshots delivers funding snapshots published by external
// collectors. Malformed payloads are logged and dropped.
func (c *Client) SubscribeFundingSnapshots(handler func(types.FundingSnapshot)) (*nats.Subscription, error) {
	return c.conn.Subscribe(SubjectFundingSnapshot, func(msg *nats.Msg) {
		var snap types.FundingSnapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			c.logger.WithError(err).Warn("dropping malformed funding snapshot")
			return
		}
		handler(snap)
	})
}

// PublishVenueHealth emits the current health snapshot set.
func (c *Client) PublishVenueHealth(snapshots []types.VenueHealthSnapshot, disabled []types.DisabledVenueState) error {
	return c.publish(SubjectVenueHealth, VenueHealthMessage{
		Venues:    snapshots,
		Disabled:  disabled,
		Timestamp: time.Now().UTC(),
	})
}
