package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
server:
  port: 9090
storage:
  type: memory
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 9090 {
		t.Fatalf("expected port from file, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("expected default read timeout, got %s", c.Server.ReadTimeout)
	}
	if c.Storage.Type != "memory" || c.Storage.Key != "trade-info-v3-storage" {
		t.Fatalf("unexpected storage %+v", c.Storage)
	}
	if c.ChangeFeed.Backend != "none" || c.Kafka.Consumer.StartOffset != "latest" {
		t.Fatalf("unexpected defaults: backend=%q offset=%q", c.ChangeFeed.Backend, c.Kafka.Consumer.StartOffset)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	env := map[string]string{
		"TRADEINFO_STORAGE":  "redis",
		"REDIS_ADDR":         "cache.internal:6380",
		"STOCK_API_URL":      "http://stocks:8000",
		"KAFKA_BROKERS":      "k1:9092, k2:9092",
		"CHANGEFEED_BACKEND": "kafka",
	}
	if err := c.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if c.Storage.Type != "redis" || c.Storage.Redis.Host != "cache.internal" || c.Storage.Redis.Port != 6380 {
		t.Fatalf("unexpected storage %+v", c.Storage)
	}
	if c.StockAPI.BaseURL != "http://stocks:8000" {
		t.Fatalf("unexpected base url %q", c.StockAPI.BaseURL)
	}
	if !reflect.DeepEqual(c.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("unexpected brokers %v", c.Kafka.Brokers)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := func(k string) string {
		if k == "REDIS_ADDR" {
			return "no-port"
		}
		return ""
	}
	if err := c.applyEnv(bad); err == nil {
		t.Fatalf("expected error for malformed REDIS_ADDR")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown storage", func(c *Config) { c.Storage.Type = "s3" }, "storage.type"},
		{"empty key", func(c *Config) { c.Storage.Key = "" }, "storage.key"},
		{"unknown backend", func(c *Config) { c.ChangeFeed.Backend = "nats" }, "changefeed.backend"},
		{"kafka without brokers", func(c *Config) { c.ChangeFeed.Backend = "kafka" }, "kafka.brokers"},
		{"quotes without brokers", func(c *Config) { c.Kafka.QuotesTopic = "quotes" }, "kafka.brokers"},
		{"no stock api", func(c *Config) { c.StockAPI.BaseURL = "" }, "stock_api.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load("")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(c)
			err = c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
