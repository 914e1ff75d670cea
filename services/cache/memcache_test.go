package cache

import (
	"bytes"
	"testing"
	"time"

	"sjsage522/soldlistings/logger"

	"github.com/stretchr/testify/assert"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", "soldlistings_test:")

	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("scrape rate limited", []byte("600"), 2*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get("scrape rate limited")
	assert.NoError(t, err)
	assert.Equal(t, "600", string(value))

	assert.NoError(t, mc.Delete("scrape rate limited"))
	assert.NoError(t, mc.Delete("scrape rate limited"), "deleting a missing key is not an error")

	_, err = mc.Get("scrape rate limited")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemcacheKeySanitized(t *testing.T) {
	mc := NewMemcacheService("localhost:11211", "p:")
	assert.Equal(t, "p:gallery_screenshots", mc.key("gallery screenshots"))
}

func TestMemcacheService_Unreachable(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf)
	defer func() { logger.Default = nil }()

	// nothing listens on port 1
	mc := NewMemcacheService("127.0.0.1:1", "p:")
	assert.Error(t, mc.Ping())
	assert.Error(t, mc.Set("gallery:screenshots", []byte("[]"), time.Minute))

	_, err := mc.Get("gallery:screenshots")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)

	out := buf.String()
	assert.Contains(t, out, "component=cache")
	assert.Contains(t, out, "Memcache set failed")
}
