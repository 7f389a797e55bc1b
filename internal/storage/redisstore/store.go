// Package redisstore persists session state in Redis so a quiz attempt
// survives presentation reloads and process restarts.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/slidequiz/engine/internal/session"
)

// Store maps one session's state onto four Redis keys:
//
//	quiz:<id>:answers   JSON map of question id -> answer state
//	quiz:<id>:shuffles  JSON map of question id -> shuffle order
//	quiz:<id>:score     integer as string
//	quiz:<id>:total     integer as string
//
// A malformed value is logged and treated as absent; it is never surfaced as
// an error, so a corrupted entry cannot block quiz progress.
type Store struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration // 0 means no expiry
	logger    zerolog.Logger
}

var _ session.Store = (*Store)(nil)

// NewStore builds a store scoped to one session id.
func NewStore(client *redis.Client, sessionID string, ttl time.Duration, logger zerolog.Logger) *Store {
	return &Store{
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
		logger:    logger.With().Str("session_id", sessionID).Logger(),
	}
}

func (s *Store) key(suffix string) string {
	return "quiz:" + s.sessionID + ":" + suffix
}

func (s *Store) LoadAnswers(ctx context.Context) (map[string]session.AnswerState, error) {
	data, err := s.client.Get(ctx, s.key("answers")).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	var answers map[string]session.AnswerState
	if err := json.Unmarshal(data, &answers); err != nil {
		s.logger.Warn().Err(err).Msg("corrupted answer map, treating as empty")
		return nil, nil
	}
	return answers, nil
}

func (s *Store) SaveAnswers(ctx context.Context, answers map[string]session.AnswerState) error {
	return s.saveJSON(ctx, s.key("answers"), answers)
}

func (s *Store) LoadShuffles(ctx context.Context) (map[string]session.ShuffleOrder, error) {
	data, err := s.client.Get(ctx, s.key("shuffles")).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shuffles: %w", err)
	}
	var shuffles map[string]session.ShuffleOrder
	if err := json.Unmarshal(data, &shuffles); err != nil {
		s.logger.Warn().Err(err).Msg("corrupted shuffle map, treating as empty")
		return nil, nil
	}
	return shuffles, nil
}

func (s *Store) SaveShuffles(ctx context.Context, shuffles map[string]session.ShuffleOrder) error {
	return s.saveJSON(ctx, s.key("shuffles"), shuffles)
}

func (s *Store) LoadTotals(ctx context.Context) (int, int, error) {
	score, err := s.loadInt(ctx, s.key("score"))
	if err != nil {
		return 0, 0, err
	}
	total, err := s.loadInt(ctx, s.key("total"))
	if err != nil {
		return 0, 0, err
	}
	return score, total, nil
}

func (s *Store) SaveTotals(ctx context.Context, score, totalPossible int) error {
	if err := s.client.Set(ctx, s.key("score"), strconv.Itoa(score), s.ttl).Err(); err != nil {
		return fmt.Errorf("set score: %w", err)
	}
	if err := s.client.Set(ctx, s.key("total"), strconv.Itoa(totalPossible), s.ttl).Err(); err != nil {
		return fmt.Errorf("set total: %w", err)
	}
	return nil
}

func (s *Store) ClearAnswers(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key("answers"), s.key("shuffles")).Err(); err != nil {
		return fmt.Errorf("del answer keys: %w", err)
	}
	return nil
}

func (s *Store) ClearTotals(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key("score"), s.key("total")).Err(); err != nil {
		return fmt.Errorf("del total keys: %w", err)
	}
	return nil
}

func (s *Store) saveJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *Store) loadInt(ctx context.Context, key string) (int, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn().Str("key", key).Str("value", raw).Msg("corrupted counter, treating as zero")
		return 0, nil
	}
	return n, nil
}
