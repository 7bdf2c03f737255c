package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/udayj/dex-aggregator/internal/types"
)

// RedisStore keeps the path map and pool snapshot as single JSON values so a
// reader always sees one snapshot in its entirety. The block number rides in
// a sibling key written inside the same pipeline.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{
		client: client,
		prefix: "dex:",
	}
}

func (rs *RedisStore) pathMapKey() string { return rs.prefix + "pathmap" }
func (rs *RedisStore) poolMapKey() string { return rs.prefix + "poolmap" }
func (rs *RedisStore) blockKey() string   { return rs.prefix + "poolmap:block" }

func (rs *RedisStore) WritePathMap(ctx context.Context, pathMap types.PathMap) error {
	data, err := marshalPathMap(pathMap)
	if err != nil {
		return fmt.Errorf("failed to marshal path map: %w", err)
	}
	return rs.client.Set(ctx, rs.pathMapKey(), data, 0).Err()
}

func (rs *RedisStore) ReadPathMap(ctx context.Context) (types.PathMap, error) {
	data, err := rs.client.Get(ctx, rs.pathMapKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("redis path map: %w", ErrStoreMissing)
		}
		return nil, err
	}
	return unmarshalPathMap([]byte(data))
}

func (rs *RedisStore) WritePoolMap(ctx context.Context, poolMap types.PoolMap, blockNumber uint64) error {
	stamped := poolMap.Clone()
	for _, pool := range stamped {
		pool.BlockNumber = blockNumber
	}
	data, err := marshalPoolMap(stamped)
	if err != nil {
		return fmt.Errorf("failed to marshal pool map: %w", err)
	}

	pipe := rs.client.TxPipeline()
	pipe.Set(ctx, rs.poolMapKey(), data, 0)
	pipe.Set(ctx, rs.blockKey(), strconv.FormatUint(blockNumber, 10), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (rs *RedisStore) ReadPoolMap(ctx context.Context) (types.PoolMap, uint64, error) {
	data, err := rs.client.Get(ctx, rs.poolMapKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, 0, fmt.Errorf("redis pool map: %w", ErrStoreMissing)
		}
		return nil, 0, err
	}

	poolMap, err := unmarshalPoolMap([]byte(data))
	if err != nil {
		return nil, 0, err
	}

	blockStr, err := rs.client.Get(ctx, rs.blockKey()).Result()
	if err != nil && err != redis.Nil {
		return nil, 0, err
	}
	var blockNumber uint64
	if err == nil {
		blockNumber, _ = strconv.ParseUint(blockStr, 10, 64)
	}
	return poolMap, blockNumber, nil
}
