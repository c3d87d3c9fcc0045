package cache

import (
	"fmt"
	"time"
)

// Config holds Redis connection settings
type Config struct {
	Host     string `validate:"required"`
	Port     int    `validate:"min=1,max=65535"`
	Password string
	DB       int `validate:"min=0"`

	// Connection pool settings
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	MaxIdleTime     time.Duration

	// DefaultTTL applies when Set is called with a zero TTL. Zero means no
	// expiry.
	DefaultTTL time.Duration
}

// DefaultConfig returns settings for a local Redis with sessions kept for
// thirty days.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            6379,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        10,
		MinIdleConns:    1,
		MaxIdleTime:     5 * time.Minute,
		DefaultTTL:      30 * 24 * time.Hour,
	}
}

// Address returns the Redis server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
