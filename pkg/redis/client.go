package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/wacampaign/campaign-scheduler/environments"
	"github.com/wacampaign/campaign-scheduler/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const cooldownKeyPrefix = "cooldown:"

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// Get returns the last send time recorded for a recipient key.
func (c *Client) Get(ctx context.Context, key string) (time.Time, bool, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(cooldownKeyPrefix+key).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get cooldown: %w", err)
	}

	data, err := result.ToString()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read cooldown: %w", err)
	}

	at, err := parseMillis(data)
	if err != nil {
		return time.Time{}, false, err
	}

	return at, true, nil
}

// Set stores the send time for a recipient key. The entry expires with the
// cooldown window since it is meaningless afterwards. EX has second
// granularity, so shorter windows are rounded up to one second.
func (c *Client) Set(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	value := strconv.FormatInt(at.UnixMilli(), 10)
	fullKey := cooldownKeyPrefix + key

	if ttl > 0 && ttl < time.Second {
		ttl = time.Second
	}

	var cmd valkey.Completed
	if ttl > 0 {
		cmd = c.client.B().Set().Key(fullKey).Value(value).Ex(ttl).Build()
	} else {
		cmd = c.client.B().Set().Key(fullKey).Value(value).Build()
	}

	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to store cooldown: %w", err)
	}

	logger.Debugf("Recorded cooldown for %s at %s", key, at.Format(time.RFC3339))

	return nil
}

// ActiveCooldowns lists every recipient key currently inside its window.
func (c *Client) ActiveCooldowns(ctx context.Context) (map[string]time.Time, error) {
	pattern := cooldownKeyPrefix + "*"

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cooldown keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	active := make(map[string]time.Time, len(keys))

	for _, key := range keys {
		data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).ToString()
		if err != nil {
			continue
		}

		at, err := parseMillis(data)
		if err != nil {
			logger.Warnf("Skipping malformed cooldown entry %q: %v", key, err)
			continue
		}

		active[strings.TrimPrefix(key, cooldownKeyPrefix)] = at
	}

	return active, nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func parseMillis(data string) (time.Time, error) {
	ms, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cooldown value %q: %w", data, err)
	}
	return time.UnixMilli(ms), nil
}
