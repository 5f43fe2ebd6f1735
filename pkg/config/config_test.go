package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CHANNEL_DELIVERY_ENDPOINT", "DELAY_POLL_EVERY", "NODE_DETAIL_CACHE_SIZE",
		"DB_HOST", "DB_USER", "DB_NAME",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ChannelDelivery.Endpoint != "http://localhost:9090/send" {
		t.Errorf("ChannelDelivery.Endpoint = %q, want default", cfg.ChannelDelivery.Endpoint)
	}
	if cfg.ChannelDelivery.DelayPollEvery != 20*time.Second {
		t.Errorf("ChannelDelivery.DelayPollEvery = %v, want 20s", cfg.ChannelDelivery.DelayPollEvery)
	}
	if cfg.ChannelDelivery.NodeDetailCacheN != 256 {
		t.Errorf("ChannelDelivery.NodeDetailCacheN = %d, want 256", cfg.ChannelDelivery.NodeDetailCacheN)
	}
}

func TestLoadChannelDeliveryFromEnv(t *testing.T) {
	os.Setenv("CHANNEL_DELIVERY_ENDPOINT", "https://dispatch.internal/send")
	os.Setenv("DELAY_POLL_EVERY", "5s")
	os.Setenv("NODE_DETAIL_CACHE_SIZE", "64")
	defer func() {
		os.Unsetenv("CHANNEL_DELIVERY_ENDPOINT")
		os.Unsetenv("DELAY_POLL_EVERY")
		os.Unsetenv("NODE_DETAIL_CACHE_SIZE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ChannelDelivery.Endpoint != "https://dispatch.internal/send" {
		t.Errorf("ChannelDelivery.Endpoint = %q, want override", cfg.ChannelDelivery.Endpoint)
	}
	if cfg.ChannelDelivery.DelayPollEvery != 5*time.Second {
		t.Errorf("ChannelDelivery.DelayPollEvery = %v, want 5s", cfg.ChannelDelivery.DelayPollEvery)
	}
	if cfg.ChannelDelivery.NodeDetailCacheN != 64 {
		t.Errorf("ChannelDelivery.NodeDetailCacheN = %d, want 64", cfg.ChannelDelivery.NodeDetailCacheN)
	}
}
