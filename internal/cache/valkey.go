// Package cache holds the caches the read API needs: a bounded in-process
// autocomplete cache, an in-process TTL store for graph snapshots, and a
// Valkey-backed store for the sync-trigger cooldown key and webhook-driven
// cache invalidation.
//
// Grounded on the teacher's internal/database cache setup
// (valkey-io/valkey-go client construction), simplified from five
// per-purpose logical databases down to one client addressed by a single
// REDIS_URL.
package cache

import (
	"github.com/valkey-io/valkey-go"

	"discogsography/pkg/logger"
)

// NewValkeyClient connects to the Valkey/Redis instance at url.
func NewValkeyClient(url string) (valkey.Client, error) {
	log := logger.New("cache").Function("NewValkeyClient")

	opts, err := valkey.ParseURL(url)
	if err != nil {
		return nil, log.Err("failed to parse redis url", err)
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, log.Err("failed to create valkey client", err)
	}

	log.Info("valkey client initialized")
	return client, nil
}
