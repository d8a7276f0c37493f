// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mqttbridge wraps paho.mqtt.golang as a pure transport shim: it
// delivers (topic, payload) pairs to a supplied callback and never imports
// internal/store. Reconnection is handled explicitly (library auto-reconnect
// is disabled) so re-subscription of the full topic-filter set is
// deterministic and testable (spec §6 Ingress).
package mqttbridge

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"

	"github.com/samels-litmus/mqtt-to-i3x/pkg/log"
)

// ConnState mirrors spec §6 Ingress's required state reporting.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// TlsConfig configures the broker's TLS transport.
type TlsConfig struct {
	CaFile             string
	CertFile           string
	KeyFile            string
	InsecureSkipVerify bool
}

// Config is the broker connection configuration this package needs — kept
// local (rather than importing internal/config) so the transport shim has no
// dependency on the rest of the bridge.
type Config struct {
	BrokerUrl       string
	ClientId        string
	Username        string
	Password        string
	Tls             *TlsConfig
	Keepalive       time.Duration
	ReconnectPeriod time.Duration
}

// MessageHandler receives every ingested MQTT message.
type MessageHandler func(topic string, payload []byte)

var logger = log.Component("mqttbridge")

// Client owns one broker connection plus the set of topic filters it must
// resubscribe to after a reconnect.
type Client struct {
	mu            sync.Mutex
	cfg           Config
	inner         mqtt.Client
	state         ConnState
	subscriptions map[string]byte
	onMessage     MessageHandler
	onStateChange func(ConnState)
	limiter       *rate.Limiter
}

// NewClient builds a Client. onMessage is invoked for every received
// message, on the paho library's own goroutine.
func NewClient(cfg Config, onMessage MessageHandler) *Client {
	period := cfg.ReconnectPeriod
	if period <= 0 {
		period = 5 * time.Second
	}

	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]byte),
		onMessage:     onMessage,
		limiter:       rate.NewLimiter(rate.Every(period), 1),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerUrl)
	if cfg.ClientId != "" {
		opts.SetClientID(cfg.ClientId)
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.Keepalive > 0 {
		opts.SetKeepAlive(cfg.Keepalive)
	}
	if cfg.Tls != nil {
		if tlsCfg, err := buildTLSConfig(cfg.Tls); err != nil {
			logger.Errorf("building TLS config: %s", err.Error())
		} else {
			opts.SetTLSConfig(tlsCfg)
		}
	}

	// Auto-reconnect is off: reconnection and resubscription are driven
	// explicitly by this wrapper so the topic set is never silently stale.
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnf("connection lost: %s", err.Error())
		c.setState(StateReconnecting)
		go c.reconnectLoop()
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setState(StateConnected)
		c.resubscribeAll()
	})
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		c.onMessage(msg.Topic(), msg.Payload())
	})

	c.inner = mqtt.NewClient(opts)
	return c
}

func buildTLSConfig(cfg *TlsConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}

	if cfg.CaFile != "" {
		pem, err := os.ReadFile(cfg.CaFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no valid certificates found in %s", cfg.CaFile)
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client keypair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}

// Connect dials the broker. Callers should call this once at startup;
// subsequent reconnects are handled internally.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)
	token := c.inner.Connect()
	done := make(chan struct{})
	go func() { token.Wait(); close(done) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	if err := token.Error(); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Subscribe registers topicFilter at qos and tracks it for resubscription on
// reconnect.
func (c *Client) Subscribe(topicFilter string, qos byte) error {
	c.mu.Lock()
	c.subscriptions[topicFilter] = qos
	c.mu.Unlock()

	token := c.inner.Subscribe(topicFilter, qos, nil)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %q: %w", topicFilter, err)
	}
	return nil
}

// Unsubscribe drops topicFilter from the tracked set and the broker
// subscription.
func (c *Client) Unsubscribe(topicFilter string) error {
	c.mu.Lock()
	delete(c.subscriptions, topicFilter)
	c.mu.Unlock()

	token := c.inner.Unsubscribe(topicFilter)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt unsubscribe %q: %w", topicFilter, err)
	}
	return nil
}

// State reports the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnStateChange registers a callback invoked on every state transition.
func (c *Client) OnStateChange(f func(ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStateChange = f
}

// Disconnect closes the connection and stops any in-flight reconnect loop.
func (c *Client) Disconnect() {
	c.inner.Disconnect(250)
	c.setState(StateDisconnected)
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	cb := c.onStateChange
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// reconnectLoop retries the connection at the configured (rate-limited)
// period until it succeeds or the client is intentionally disconnected.
func (c *Client) reconnectLoop() {
	for {
		if c.State() == StateDisconnected {
			return
		}
		reservation := c.limiter.Reserve()
		time.Sleep(reservation.Delay())

		token := c.inner.Connect()
		token.Wait()
		if token.Error() == nil {
			return // OnConnectHandler transitions state and resubscribes
		}
		logger.Warnf("reconnect attempt failed: %s", token.Error().Error())
	}
}

// resubscribeAll re-establishes every tracked topic filter after a
// reconnect.
func (c *Client) resubscribeAll() {
	c.mu.Lock()
	filters := make(map[string]byte, len(c.subscriptions))
	for k, v := range c.subscriptions {
		filters[k] = v
	}
	c.mu.Unlock()

	for filter, qos := range filters {
		token := c.inner.Subscribe(filter, qos, nil)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Errorf("resubscribe to %q failed: %s", filter, err.Error())
		}
	}
}
