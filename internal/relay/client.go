package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fluxviewer/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Second

// Handler receives messages from a subscribed topic.
type Handler func(topic string, payload []byte)

// Client is an MQTT Publisher that can also subscribe to control topics.
type Client struct {
	log    *logger.Log
	cfg    Conf
	client mqtt.Client

	mu   sync.Mutex
	subs map[string]Handler
}

// NewClient constructor.
func NewClient(log *logger.Log, cfg Conf) *Client {
	if cfg.ClientID == "" {
		cfg.ClientID = "fluxviewer-" + uuid.NewString()
	}
	if cfg.Schema == "" {
		cfg.Schema = "tcp"
	}
	return &Client{
		log:  log.With(logger.Fields{"module": "mqtt"}),
		cfg:  cfg,
		subs: map[string]Handler{},
	}
}

// Start connects to the broker, retrying until it succeeds or ctx is done.
func (c *Client) Start(ctx context.Context) error {
	if c.log.GetLevel() == "debug" {
		mqtt.ERROR = pahoLogger{log: c.log, level: logrus.ErrorLevel}
		mqtt.CRITICAL = pahoLogger{log: c.log, level: logrus.ErrorLevel}
		mqtt.WARN = pahoLogger{log: c.log, level: logrus.WarnLevel}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfg.Schema, c.cfg.Host, c.cfg.Port)).
		SetUsername(c.cfg.User).
		SetPassword(c.cfg.Password).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfg.ClientID).
		SetOrderMatters(false).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-ctx.Done():
		return errors.New("context canceled")
	}

	c.log.Infof("Status: %v", c.client.IsConnected())
	return nil
}

func (c *Client) Stop() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, c.cfg.Qos, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	return token.Error()
}

// Subscribe registers h for topic. Subscriptions are renewed on every reconnect.
func (c *Client) Subscribe(topic string, h Handler) {
	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()

	if c.client != nil && c.client.IsConnectionOpen() {
		c.sub(c.client, topic, h)
	}
}

func (c *Client) sub(client mqtt.Client, topic string, h Handler) {
	token := client.Subscribe(topic, c.cfg.Qos, func(_ mqtt.Client, msg mqtt.Message) {
		c.log.Debugf("received message: %s from topic: %s", msg.Payload(), msg.Topic())
		h(msg.Topic(), msg.Payload())
	})
	go func() {
		<-token.Done()
		if token.Error() != nil {
			c.log.Errorf("topic %s subscription error. %v", topic, token.Error())
			return
		}
		c.log.Debugf("topic %s subscribed", topic)
	}()
}

func (c *Client) connectHandler(client mqtt.Client) {
	c.log.Info("client connected to server")

	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, h := range c.subs {
		c.sub(client, topic, h)
	}
}

func (c *Client) connectLostHandler(_ mqtt.Client, err error) {
	c.log.Errorf("server connect lost: %v", err)
}

// pahoLogger routes the library's internal logging through logrus.
type pahoLogger struct {
	log   *logger.Log
	level logrus.Level
}

func (l pahoLogger) Println(v ...interface{}) { l.log.Log(l.level, v...) }
func (l pahoLogger) Printf(format string, v ...interface{}) { l.log.Logf(l.level, format, v...) }
