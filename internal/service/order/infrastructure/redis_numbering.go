package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisNumberGenerator 基于 Redis INCR 实现订单号序列：
// 每天一个计数键，生成形如 ORD-20260901-000042 的订单号。
// 计数键保留两天后过期，跨午夜的竞争由各自的键天然隔离。
type RedisNumberGenerator struct {
	client *redis.Client
	prefix string
}

// NewRedisNumberGenerator 创建订单号生成器，prefix 用于隔离不同部署环境的键空间。
func NewRedisNumberGenerator(client *redis.Client, prefix string) *RedisNumberGenerator {
	if prefix == "" {
		prefix = "omnia:order-seq"
	}
	return &RedisNumberGenerator{client: client, prefix: prefix}
}

// Next 产生下一个订单号。INCR 是原子的，多实例并发取号不会重号。
func (g *RedisNumberGenerator) Next(ctx context.Context) (string, error) {
	day := time.Now().UTC().Format("20060102")
	key := fmt.Sprintf("%s:%s", g.prefix, day)

	seq, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return "", errors.Wrap(err, "increment order sequence")
	}
	if seq == 1 {
		// 首次取号时设置过期，失败不致命，键多留几天无碍
		g.client.Expire(ctx, key, 48*time.Hour)
	}
	return fmt.Sprintf("ORD-%s-%06d", day, seq), nil
}
