package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// JobLock is a best-effort mutual exclusion across replicas for periodic jobs.
type JobLock struct {
	client *redis.Client
	prefix string
}

// NewJobLock creates a new JobLock.
func NewJobLock(client *redis.Client) *JobLock {
	return &JobLock{
		client: client,
		prefix: "loanledger:lock:",
	}
}

// Acquire takes the lock for name with the given owner token. It reports
// false when another owner holds it.
func (l *JobLock) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+name, owner, ttl).Result()
}

// Release frees the lock if owner still holds it.
func (l *JobLock) Release(ctx context.Context, name, owner string) error {
	return releaseScript.Run(ctx, l.client, []string{l.prefix + name}, owner).Err()
}
