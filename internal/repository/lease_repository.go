package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "lms-ranking:lease:"

var releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// LeaseRepository hands out short-lived exclusive leases so one replica runs a scheduler tick.
type LeaseRepository struct {
	client *redis.Client
}

// NewLeaseRepository constructs the repository. Without Redis every lease is granted (single instance).
func NewLeaseRepository(client *redis.Client) *LeaseRepository {
	return &LeaseRepository{client: client}
}

// Acquire tries to take the lease for owner; it reports false when another owner holds it.
func (r *LeaseRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, leaseKeyPrefix+name, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return ok, nil
}

// Release drops the lease if owner still holds it.
func (r *LeaseRepository) Release(ctx context.Context, name, owner string) error {
	if r.client == nil {
		return nil
	}
	if err := releaseLeaseScript.Run(ctx, r.client, []string{leaseKeyPrefix + name}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}
