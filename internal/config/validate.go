package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *BridgeConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url must be a ws:// or wss:// URL, got %q", c.Feed.URL)
	}
	if c.Feed.RetryMaxAttempts < 1 {
		return errors.New("feed.retry_max_attempts must be >= 1")
	}
	if c.Feed.RetryMultiplier < 1 {
		return errors.New("feed.retry_multiplier must be >= 1")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if !strings.HasPrefix(c.Broker.URL, "amqp://") && !strings.HasPrefix(c.Broker.URL, "amqps://") {
		return fmt.Errorf("broker.url must be an amqp:// or amqps:// URL, got %q", c.Broker.URL)
	}
	if !strings.Contains(c.Broker.CurrencyUpdateRoutingBind, "#") {
		return fmt.Errorf("broker.currency_update_routing_bind must contain a # symbol placeholder, got %q", c.Broker.CurrencyUpdateRoutingBind)
	}

	if c.Throttle.BatchLimit < 1 {
		return errors.New("throttle.batch_limit must be >= 1")
	}
	if c.Throttle.FlushInterval <= 0 {
		return errors.New("throttle.flush_interval must be > 0")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns must be <= max_conns", prefix)
	}
	return nil
}
