package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rent-reclaim-sol/internal/logic/domain"

	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix = "reclaim:history"
	historyTTL       = 30 * 24 * time.Hour
	maxHistoryLen    = 50
)

// HistoryStore 将每次 run 的汇总持久化到 Redis（每个钱包一条 list，新纪录在前）
type HistoryStore struct {
	rdb *redis.Client
}

func NewHistoryStore(rdb *redis.Client) *HistoryStore {
	return &HistoryStore{rdb: rdb}
}

func (s *HistoryStore) key(wallet string) string {
	return fmt.Sprintf("%s:%s", historyKeyPrefix, wallet)
}

// SaveRunSummary 追加一条汇总记录并裁剪历史长度
func (s *HistoryStore) SaveRunSummary(ctx context.Context, wallet string, summary *domain.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	key := s.key(wallet)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxHistoryLen-1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save summary: %w", err)
	}
	return nil
}

// RecentRunSummaries 返回最近 limit 条汇总记录（新纪录在前）
func (s *HistoryStore) RecentRunSummaries(ctx context.Context, wallet string, limit int64) ([]*domain.RunSummary, error) {
	if limit <= 0 {
		limit = maxHistoryLen
	}
	items, err := s.rdb.LRange(ctx, s.key(wallet), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load history: %w", err)
	}

	summaries := make([]*domain.RunSummary, 0, len(items))
	for _, item := range items {
		var summary domain.RunSummary
		if err := json.Unmarshal([]byte(item), &summary); err != nil {
			// 单条损坏不影响其余记录
			continue
		}
		summaries = append(summaries, &summary)
	}
	return summaries, nil
}
