package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/computer2mqtt/core/mqtt"
	"github.com/kilianp07/computer2mqtt/infra/logger"
)

const (
	DefaultPort = 1883

	// Credentials sent when none are configured; brokers bundled with home
	// automation setups reject an empty username outright.
	defaultUsername = "default_user"
	defaultPassword = "default_password"

	defaultKeepAlive      = 60 * time.Second
	defaultConnectTimeout = 30 * time.Second
	disconnectQuiesce     = 250 // milliseconds
	inboxSize             = 64
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	// Hostname overrides the topic host segment. Empty means auto-detect.
	Hostname   string      `json:"hostname"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	QoS        int         `json:"qos"`
	TLSConfig  *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("qos %d must be 0, 1 or 2", c.QoS)
	}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return fmt.Errorf("client_cert and client_key must be set together")
	}
	return nil
}

// BrokerURL returns the tcp:// or ssl:// URL of the configured broker.
func (c Config) BrokerURL() string {
	scheme := "tcp"
	if c.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.IP, c.Port)
}

// pahoClient is the subset of paho.Client used by a session.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewClientOptions builds mqtt client options from Config. Automatic
// reconnection is disabled: the subscription loop owns the retry policy.
func NewClientOptions(cfg Config, clientID string) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.BrokerURL()).SetClientID(clientID)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetConnectTimeout(defaultConnectTimeout)

	user, pass := cfg.User, cfg.Password
	if user == "" {
		user = defaultUsername
	}
	if pass == "" {
		pass = defaultPassword
	}
	opts.SetUsername(user)
	opts.SetPassword(pass)

	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
// Without a CA bundle the system roots are used; the client certificate is
// optional.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.ClientCert != "" && c.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if c.CABundle != "" {
		caBytes, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("ca bundle %s contains no certificates", c.CABundle)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

// PahoConnector implements coremqtt.Connector using Eclipse Paho.
type PahoConnector struct {
	cfg    Config
	logger logger.Logger
}

// NewPahoConnector validates the TLS material up front so that a bad path is
// reported at startup instead of on every reconnect.
func NewPahoConnector(cfg Config, log logger.Logger) (*PahoConnector, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		cfg.TLSConfig = tlsCfg
	}
	return &PahoConnector{cfg: cfg, logger: log}, nil
}

// Connect dials the broker and returns a live session.
func (p *PahoConnector) Connect(ctx context.Context, clientID string) (coremqtt.Session, error) {
	opts, err := NewClientOptions(p.cfg, clientID)
	if err != nil {
		return nil, err
	}
	s := &session{
		inbox:  make(chan coremqtt.Message, inboxSize),
		lost:   make(chan error, 1),
		closed: make(chan struct{}),
		qos:    byte(p.cfg.QoS),
		logger: p.logger,
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.onLost(err)
	})
	cli := newMQTTClient(opts)

	token := cli.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		// Let the pending attempt finish in the background, then drop it.
		go func() {
			token.Wait()
			cli.Disconnect(0)
		}()
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, newTransportError("connect", err)
	}
	s.cli = cli
	return s, nil
}

type session struct {
	cli    pahoClient
	inbox  chan coremqtt.Message
	lost   chan error
	closed chan struct{}
	qos    byte
	logger logger.Logger

	closeOnce sync.Once
}

func (s *session) Subscribe(ctx context.Context, filter string) error {
	token := s.cli.Subscribe(filter, s.qos, s.onMessage)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case err := <-s.lost:
		return newTransportError("subscribe", err)
	}
	if err := token.Error(); err != nil {
		return newTransportError("subscribe", err)
	}
	if st, ok := token.(*paho.SubscribeToken); ok {
		for topic, code := range st.Result() {
			if code == 0x80 {
				return newTransportError("subscribe", fmt.Errorf("broker rejected subscription to %s", topic))
			}
		}
	}
	return nil
}

func (s *session) Receive(ctx context.Context) (coremqtt.Message, error) {
	select {
	case msg := <-s.inbox:
		return msg, nil
	case err := <-s.lost:
		return coremqtt.Message{}, newTransportError("receive", err)
	case <-s.closed:
		return coremqtt.Message{}, coremqtt.ErrSessionClosed
	case <-ctx.Done():
		return coremqtt.Message{}, ctx.Err()
	}
}

// Close disconnects from the broker. It is idempotent.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.cli != nil && s.cli.IsConnected() {
			s.cli.Disconnect(disconnectQuiesce)
		}
	})
	return nil
}

// onMessage runs on the paho router goroutine. It blocks while the inbox is
// full so that delivery order is kept, and gives up once the session closes.
func (s *session) onMessage(_ paho.Client, msg paho.Message) {
	select {
	case s.inbox <- coremqtt.Message{Topic: msg.Topic(), Payload: msg.Payload()}:
	case <-s.closed:
	}
}

func (s *session) onLost(err error) {
	if err == nil {
		err = fmt.Errorf("connection lost")
	}
	s.logger.Errorf("connection lost: %v", err)
	select {
	case s.lost <- err:
	default:
	}
}
