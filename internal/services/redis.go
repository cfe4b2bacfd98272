package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// ErrCacheUnavailable is returned by the cache helpers when InitRedis has
// not run. Callers treat the cache as best-effort and fall back to the
// database or a live lookup.
var ErrCacheUnavailable = errors.New("redis client not initialized")

const (
	// DirectionsCacheTTL matches how often intercity route geometry is
	// worth refreshing.
	DirectionsCacheTTL = 24 * time.Hour

	coordinateCacheTTL = 13 * time.Hour // outlives the 12h session window
)

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// LatestCoordinate is the most recent position sample for a tracking token
type LatestCoordinate struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recordedAt"`
}

// SetLatestCoordinate caches the newest position for a tracking token so the
// public resolver never has to scan the coordinates table.
func SetLatestCoordinate(ctx context.Context, token string, coord LatestCoordinate) error {
	if RedisClient == nil {
		return ErrCacheUnavailable
	}
	data, err := json.Marshal(coord)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("tracking:latest:%s", token)
	return RedisClient.Set(ctx, key, data, coordinateCacheTTL).Err()
}

// GetLatestCoordinate retrieves the cached newest position for a token.
// Returns redis.Nil when nothing has been reported yet.
func GetLatestCoordinate(ctx context.Context, token string) (LatestCoordinate, error) {
	if RedisClient == nil {
		return LatestCoordinate{}, ErrCacheUnavailable
	}
	key := fmt.Sprintf("tracking:latest:%s", token)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return LatestCoordinate{}, err
	}

	var coord LatestCoordinate
	if err := json.Unmarshal([]byte(data), &coord); err != nil {
		return LatestCoordinate{}, err
	}

	return coord, nil
}

// PublishCoordinate pushes a position sample onto the token's pub/sub
// channel for websocket fan-out.
func PublishCoordinate(ctx context.Context, token string, coord LatestCoordinate) error {
	if RedisClient == nil {
		return ErrCacheUnavailable
	}
	data, err := json.Marshal(coord)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, CoordinateChannel(token), data).Err()
}

// CoordinateChannel names the pub/sub channel carrying a token's samples
func CoordinateChannel(token string) string {
	return fmt.Sprintf("tracking:coords:%s", token)
}

// SubscribeCoordinates subscribes to a token's coordinate stream
func SubscribeCoordinates(ctx context.Context, token string) *redis.PubSub {
	return RedisClient.Subscribe(ctx, CoordinateChannel(token))
}

// SetCachedRoute stores a directions result under its cache key
func SetCachedRoute(ctx context.Context, key string, route interface{}) error {
	if RedisClient == nil {
		return ErrCacheUnavailable
	}
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	return RedisClient.Set(ctx, key, data, DirectionsCacheTTL).Err()
}

// GetCachedRoute loads a directions result into dest; returns redis.Nil on
// a cache miss.
func GetCachedRoute(ctx context.Context, key string, dest interface{}) error {
	if RedisClient == nil {
		return ErrCacheUnavailable
	}
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// DirectionsCacheKeyCoords builds the cache key for a coordinate-pair route.
// Coordinates are rounded to 4 decimal places (about 11 meters) so nearby
// lookups share an entry.
func DirectionsCacheKeyCoords(fromLat, fromLng, toLat, toLng float64) string {
	return fmt.Sprintf("directions:%.4f,%.4f:%.4f,%.4f", fromLat, fromLng, toLat, toLng)
}

// DirectionsCacheKeyCities builds the cache key for a city-pair route
func DirectionsCacheKeyCities(fromCity, toCity string) string {
	return fmt.Sprintf("directions:%s_%s", fromCity, toCity)
}
