package repository

import (
	"context"
	"encoding/json"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisAuditMirror keeps the newest audit rows in a capped Redis list.
type RedisAuditMirror struct {
	client  redis.Cmdable
	listKey string
	listMax int
}

func NewRedisAuditMirror(client redis.Cmdable, listKey string, listMax int) *RedisAuditMirror {
	if listKey == "" {
		listKey = "buildmymeta:audit"
	}
	if listMax <= 0 {
		listMax = 10000
	}
	return &RedisAuditMirror{
		client:  client,
		listKey: listKey,
		listMax: listMax,
	}
}

func (r *RedisAuditMirror) Append(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := r.client.LPush(ctx, r.listKey, payload).Err(); err != nil {
		return err
	}
	_ = r.client.LTrim(ctx, r.listKey, 0, int64(r.listMax-1)).Err()
	return nil
}

// Recent returns up to limit mirrored rows, newest first, optionally filtered by log.
func (r *RedisAuditMirror) Recent(ctx context.Context, kind model.AuditKind, limit int) ([]*model.AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	fetch := limit * 5
	if fetch < 100 {
		fetch = 100
	}
	if fetch > r.listMax {
		fetch = r.listMax
	}
	items, err := r.client.LRange(ctx, r.listKey, 0, int64(fetch-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	results := make([]*model.AuditEntry, 0, limit)
	for _, raw := range items {
		var entry model.AuditEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if kind != "" && entry.Kind != kind {
			continue
		}
		results = append(results, &entry)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
