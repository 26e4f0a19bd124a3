package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	ctx    context.Context
}

func New(redisURL string) *Redis {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("[CACHE] invalid redis url:", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("[CACHE] redis ping failed:", err)
	}

	return &Redis{client: client, ctx: ctx}
}

// Get retrieves a JSON-encoded value from cache
func (r *Redis) Get(key string, dest interface{}) bool {
	val, err := r.client.Get(r.ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores a JSON-encoded value in cache
func (r *Redis) Set(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.client.Set(r.ctx, key, data, ttl)
}

func (r *Redis) Close() {
	r.client.Close()
}
