package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/wasatchbitworks/birdworks-live/internal/errors"
	"github.com/wasatchbitworks/birdworks-live/internal/logger"
	"github.com/wasatchbitworks/birdworks-live/internal/observability/metrics"
)

const componentName = "mqtt"

// detectionMessage is the subset of a station's detection payload we log.
type detectionMessage struct {
	CommonName string  `json:"CommonName"`
	Confidence float64 `json:"Confidence"`
}

// Trigger refreshes the live table whenever a detection is published.
type Trigger struct {
	config    Config
	refresher Refresher
	log       logger.Logger
	metrics   *metrics.MQTTMetrics

	mu             sync.Mutex
	internalClient paho.Client
}

// NewTrigger creates a trigger. log and m may be nil.
func NewTrigger(cfg Config, refresher Refresher, log logger.Logger, m *metrics.MQTTMetrics) *Trigger {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return &Trigger{
		config:    cfg,
		refresher: refresher,
		log:       log.Module(componentName),
		metrics:   m,
	}
}

// Start connects to the broker. The subscription is (re)made on every
// successful connect.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.internalClient != nil {
		return nil
	}

	u, err := url.Parse(t.config.Broker)
	if err != nil || u.Hostname() == "" {
		return t.configError(fmt.Errorf("invalid broker URL %q", t.config.Broker))
	}
	if t.config.Topic == "" {
		return t.configError(fmt.Errorf("mqtt topic is required"))
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(fmt.Errorf("failed to resolve hostname %s: %w", host, err)).
				Component(componentName).
				Category(errors.CategoryMQTT).
				NetworkContext(t.config.Broker, t.config.ConnectTimeout).
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(t.config.Broker)
	opts.SetClientID(t.config.ClientID)
	opts.SetUsername(t.config.Username)
	opts.SetPassword(t.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(t.config.MaxReconnectInterval)
	opts.SetOnConnectHandler(t.onConnect)
	opts.SetConnectionLostHandler(t.onConnectionLost)
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		t.metrics.IncrementReconnectAttempts()
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(t.config.ConnectTimeout) {
		client.Disconnect(uint(t.config.DisconnectTimeout.Milliseconds()))
		return errors.Newf("connection timeout").
			Component(componentName).
			Category(errors.CategoryMQTT).
			NetworkContext(t.config.Broker, t.config.ConnectTimeout).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(fmt.Errorf("connection error: %w", err)).
			Component(componentName).
			Category(errors.CategoryMQTT).
			Build()
	}

	t.internalClient = client
	return nil
}

// Stop disconnects from the broker.
func (t *Trigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.internalClient == nil {
		return
	}
	t.internalClient.Disconnect(uint(t.config.DisconnectTimeout.Milliseconds()))
	t.internalClient = nil
	t.metrics.UpdateConnectionStatus(false)
	t.log.Info("disconnected from MQTT broker")
}

// IsConnected returns true if the client is currently connected to the broker.
func (t *Trigger) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.internalClient != nil && t.internalClient.IsConnected()
}

func (t *Trigger) onConnect(client paho.Client) {
	t.metrics.UpdateConnectionStatus(true)
	t.log.Info("connected to MQTT broker",
		logger.String("broker", t.config.Broker),
		logger.String("topic", t.config.Topic))

	token := client.Subscribe(t.config.Topic, 0, t.onMessage)
	// this runs on paho's connection goroutine, so wait in another one
	go func() {
		if !token.WaitTimeout(t.config.ConnectTimeout) || token.Error() != nil {
			t.metrics.IncrementErrors()
			t.log.Error("failed to subscribe", logger.String("topic", t.config.Topic), logger.Error(token.Error()))
		}
	}()
}

func (t *Trigger) onConnectionLost(_ paho.Client, err error) {
	t.metrics.UpdateConnectionStatus(false)
	t.metrics.IncrementErrors()
	t.log.Warn("connection to MQTT broker lost", logger.Error(err))
}

func (t *Trigger) onMessage(_ paho.Client, msg paho.Message) {
	t.HandleMessage(msg.Topic(), msg.Payload())
}

// HandleMessage triggers a refresh for one detection message. Payloads that
// are not detection JSON still trigger the refresh.
func (t *Trigger) HandleMessage(topic string, payload []byte) bool {
	t.metrics.IncrementMessagesReceived()

	fields := []logger.Field{logger.String("topic", topic)}
	var msg detectionMessage
	if err := json.Unmarshal(payload, &msg); err == nil && msg.CommonName != "" {
		fields = append(fields,
			logger.String("species", msg.CommonName),
			logger.Float64("confidence", msg.Confidence))
	}

	admitted := t.refresher.TriggerRefresh()
	fields = append(fields, logger.Bool("admitted", admitted))
	t.log.Debug("detection message received", fields...)
	return admitted
}

func (t *Trigger) configError(err error) error {
	return errors.New(err).
		Component(componentName).
		Category(errors.CategoryConfiguration).
		Context("operation", "connect").
		Build()
}
