package config

import "time"

// BridgeConfig is the root configuration for a bridge instance.
type BridgeConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Feed     FeedConfig     `yaml:"feed"`
	Database DBConfig       `yaml:"database"`
	Broker   BrokerConfig   `yaml:"broker"`
	Throttle ThrottleConfig `yaml:"throttle"`
}

// InstanceConfig identifies this bridge.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds exchange feed settings.
type FeedConfig struct {
	URL               string        `yaml:"url"`
	RetryMaxAttempts  int           `yaml:"retry_max_attempts"`
	RetryBaseInterval time.Duration `yaml:"retry_base_interval"`
	RetryMultiplier   float64       `yaml:"retry_multiplier"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	SubscriberBuffer  int           `yaml:"subscriber_buffer"`
}

// DBConfig holds the subscription store connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// BrokerConfig holds the message broker connection and topology names.
// Names are configuration, not protocol.
type BrokerConfig struct {
	URL      string `yaml:"url"`
	Prefetch int    `yaml:"prefetch"`

	Exchange string `yaml:"exchange"`

	SubscriptionQueue       string `yaml:"subscription_queue"`
	SubscriptionRoutingBind string `yaml:"subscription_routing_bind"`
	UnsubscribeRoutingBind  string `yaml:"unsubscribe_routing_bind"`

	CurrencyUpdateQueue       string `yaml:"currency_update_queue"`
	CurrencyUpdateRoutingBind string `yaml:"currency_update_routing_bind"`

	CurrencyErrorQueue       string `yaml:"currency_error_queue"`
	CurrencyErrorRoutingBind string `yaml:"currency_error_routing_bind"`

	DeadLetterExchange string `yaml:"dead_letter_exchange"`
	DeadLetterQueue    string `yaml:"dead_letter_queue"`
}

// ThrottleConfig holds subscription batching settings.
type ThrottleConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	BatchLimit    int           `yaml:"batch_limit"`
	StreamSuffix  string        `yaml:"stream_suffix"`
}
