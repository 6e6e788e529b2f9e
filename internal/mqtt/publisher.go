package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"intentgate/internal/domain"
)

type PublisherConfig struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// tokenPublisher is the part of paho.Client the publisher needs.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher emits request outcomes and capability snapshots. It never
// subscribes; the broker is an audit sink only.
type Publisher struct {
	cfg    PublisherConfig
	client tokenPublisher
	logger *slog.Logger
}

func NewPublisher(cfg PublisherConfig, logger *slog.Logger) *Publisher {
	return &Publisher{cfg: cfg, logger: logger}
}

func (p *Publisher) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(p.cfg.BrokerURL).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.logger.Error("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		p.logger.Info("mqtt connected", "broker", p.cfg.BrokerURL, "prefix", p.cfg.TopicPrefix)
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	p.client = client

	go func() {
		<-ctx.Done()
		client.Disconnect(100)
	}()
	return nil
}

// Record publishes the outcome on its per-request topic.
func (p *Publisher) Record(ctx context.Context, o domain.Outcome) error {
	body, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicOutcome(p.cfg.TopicPrefix, o.RequestID), false, body)
}

func (p *Publisher) PublishCapabilities(ctx context.Context, snapshot domain.CapabilitySnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return p.publish(ctx, TopicCapabilities(p.cfg.TopicPrefix), true, body)
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, body []byte) error {
	if p.client == nil {
		return errors.New("mqtt publisher is not started")
	}
	token := p.client.Publish(topic, 1, retained, body)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	case <-time.After(5 * time.Second):
		return errors.New("mqtt publish timeout")
	}
}
