// Package mq publishes negotiation telemetry to RocketMQ.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	rocketmq "github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"go.uber.org/zap"
)

const (
	TagProductView = "product_view"
	TagNegotiation = "negotiation"
)

// sender is the part of rocketmq.Producer the publisher uses.
type sender interface {
	SendSync(ctx context.Context, msgs ...*primitive.Message) (*primitive.SendResult, error)
}

type Producer struct {
	client sender
	tag    string
}

func NewProducer(client sender, tag string) *Producer {
	return &Producer{client: client, tag: tag}
}

// Publish encodes payload as JSON and sends it synchronously to topic.
func (p *Producer) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("converting error: %w", err)
	}
	msg := primitive.NewMessage(topic, data)
	if p.tag != "" {
		msg.WithTag(p.tag)
	}
	if _, err := p.client.SendSync(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	return nil
}

// Client owns a started RocketMQ producer.
type Client struct {
	rocketmq.Producer
}

// Start creates and starts a producer. It returns nil, nil when no name servers are configured.
func Start(nameServers []string, retries int, logger *zap.Logger) (*Client, error) {
	resolved := resolveNameServers(nameServers, logger)
	if len(resolved) == 0 {
		logger.Info("rocketmq name servers not configured, telemetry disabled")
		return nil, nil
	}

	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(resolved)),
		producer.WithRetry(retries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create RocketMQ producer: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("failed to start RocketMQ producer: %w", err)
	}
	return &Client{Producer: p}, nil
}

func (c *Client) Close() error {
	return c.Shutdown()
}

func resolveNameServers(servers []string, logger *zap.Logger) []string {
	var resolved []string
	for _, addr := range servers {
		if addr == "" {
			continue
		}
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			logger.Warn("name server without port", zap.String("addr", addr), zap.Error(err))
			resolved = append(resolved, addr)
			continue
		}
		ips, err := net.LookupHost(host)
		if err != nil || len(ips) == 0 {
			resolved = append(resolved, addr)
			continue
		}
		resolved = append(resolved, net.JoinHostPort(ips[0], port))
	}
	return resolved
}
