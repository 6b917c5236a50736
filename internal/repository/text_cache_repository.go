package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 提取文本缓存的默认保留时长。
const textCacheTTL = 7 * 24 * time.Hour

// TextCacheRepository 定义了提取文本缓存的访问接口。
// 文档本体由外部协作方持有，本核心唯一允许的写入就是缓存提取文本。
type TextCacheRepository interface {
	Put(ctx context.Context, documentID, text string) error
	Get(ctx context.Context, documentID string) (string, bool, error)
	Delete(ctx context.Context, documentID string) error
}

type textCacheRepository struct {
	rdb *redis.Client
}

// NewTextCacheRepository 创建一个新的 TextCacheRepository 实例。
func NewTextCacheRepository(rdb *redis.Client) TextCacheRepository {
	return &textCacheRepository{rdb: rdb}
}

func cacheKey(documentID string) string {
	return fmt.Sprintf("doc:text:%s", documentID)
}

// Put 缓存一个文档的提取文本。
func (r *textCacheRepository) Put(ctx context.Context, documentID, text string) error {
	return r.rdb.Set(ctx, cacheKey(documentID), text, textCacheTTL).Err()
}

// Get 返回缓存的提取文本；第二个返回值表示是否命中。
func (r *textCacheRepository) Get(ctx context.Context, documentID string) (string, bool, error) {
	text, err := r.rdb.Get(ctx, cacheKey(documentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Delete 移除缓存的提取文本。
func (r *textCacheRepository) Delete(ctx context.Context, documentID string) error {
	return r.rdb.Del(ctx, cacheKey(documentID)).Err()
}
