package registry

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const (
	connsKey  = "presence:conns"  // hash: connection id -> user id
	onlineKey = "presence:online" // set of online user ids
)

func userConnsKey(userID string) string {
	return "presence:user:" + userID + ":conns"
}

// unregisterScript removes one connection and, when it was the user's
// last, takes the user out of the online set in the same atomic step.
// Without the script a concurrent register of a second device could
// slip between the per-user removal and the online-set removal, leaving
// the two views disagreeing until the next churn.
var unregisterScript = redis.NewScript(`
local user = redis.call("HGET", KEYS[1], ARGV[1])
if not user then
	return 0
end
redis.call("HDEL", KEYS[1], ARGV[1])
local connsKey = "presence:user:" .. user .. ":conns"
redis.call("SREM", connsKey, ARGV[1])
if redis.call("SCARD", connsKey) == 0 then
	redis.call("SREM", KEYS[2], user)
end
return 1
`)

// Redis is a Registry backed by Redis sets, for deployments running more
// than one server process. Operations are best-effort: Redis failures are
// logged, matching the presence write behavior of the rest of the system,
// and never bubble up to connection handling.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Register(connID, userID string) {
	ctx := context.Background()

	added, err := r.client.HSetNX(ctx, connsKey, connID, userID).Result()
	if err != nil {
		log.Printf("registry: failed to register connection %s: %v", connID, err)
		return
	}
	if !added {
		// Connection id already registered.
		return
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, userConnsKey(userID), connID)
	pipe.SAdd(ctx, onlineKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("registry: failed to set presence for %s: %v", userID, err)
	}
}

func (r *Redis) Unregister(connID string) {
	ctx := context.Background()
	if err := unregisterScript.Run(ctx, r.client, []string{connsKey, onlineKey}, connID).Err(); err != nil {
		log.Printf("registry: failed to unregister connection %s: %v", connID, err)
	}
}

func (r *Redis) IsOnline(userID string) bool {
	n, err := r.client.SCard(context.Background(), userConnsKey(userID)).Result()
	if err != nil {
		log.Printf("registry: failed to check presence for %s: %v", userID, err)
		return false
	}
	return n > 0
}

func (r *Redis) OnlineUsers() []string {
	users, err := r.client.SMembers(context.Background(), onlineKey).Result()
	if err != nil {
		log.Printf("registry: failed to fetch online users: %v", err)
		return nil
	}
	return users
}

func (r *Redis) Close() error {
	return r.client.Close()
}
