package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/infrastructure/redis"
)

const leadIndexKey = "leads:index"

func leadKey(id string) string {
	return fmt.Sprintf("lead:%s", id)
}

// RedisLeadRepository implements domain.LeadRepository using Redis.
// Each lead is a JSON value; leads:index keeps insertion order.
type RedisLeadRepository struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewRedisLeadRepository creates a new lead repository
func NewRedisLeadRepository(redisClient *redis.Client, logger *slog.Logger) *RedisLeadRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisLeadRepository{
		redis:  redisClient,
		logger: logger,
	}
}

// Append stores a lead and its index entry atomically
func (r *RedisLeadRepository) Append(ctx context.Context, draft domain.LeadDraft) (*domain.Lead, error) {
	lead := newLeadRecord(draft)

	data, err := json.Marshal(lead)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lead: %w", err)
	}

	err = r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, leadKey(lead.ID), string(data), 0)
		pipe.RPush(ctx, leadIndexKey, lead.ID)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to store lead",
			slog.String("lead_id", lead.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	r.logger.Debug("lead saved", slog.String("lead_id", lead.ID))
	return lead, nil
}

// ListAll returns every lead in insertion order
func (r *RedisLeadRepository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	ids, err := r.redis.LRange(ctx, leadIndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read lead index: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = leadKey(id)
	}

	values, err := r.redis.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}

	leads := make([]domain.Lead, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// index entry without a value, left behind by an interrupted delete
			r.logger.Warn("lead index entry has no value", slog.String("lead_id", ids[i]))
			continue
		}

		var lead domain.Lead
		if err := json.Unmarshal([]byte(s), &lead); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lead %s: %w", ids[i], err)
		}
		leads = append(leads, lead)
	}

	return leads, nil
}

// FindByID retrieves a lead by ID
func (r *RedisLeadRepository) FindByID(ctx context.Context, id string) (*domain.Lead, error) {
	data, err := r.redis.Get(ctx, leadKey(id))
	if redis.IsNil(err) {
		return nil, domain.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	var lead domain.Lead
	if err := json.Unmarshal([]byte(data), &lead); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lead: %w", err)
	}

	return &lead, nil
}

// DeleteByID removes a lead and its index entry
func (r *RedisLeadRepository) DeleteByID(ctx context.Context, id string) error {
	err := r.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, leadKey(id))
		pipe.LRem(ctx, leadIndexKey, 0, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}

	r.logger.Debug("lead deleted", slog.String("lead_id", id))
	return nil
}

// SetStatus updates the status with an optimistic WATCH transaction
func (r *RedisLeadRepository) SetStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	err := r.redis.UpdateWatched(ctx, leadKey(id), func(current string) (string, error) {
		var lead domain.Lead
		if err := json.Unmarshal([]byte(current), &lead); err != nil {
			return "", fmt.Errorf("failed to unmarshal lead: %w", err)
		}

		lead.Status = status
		lead.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(lead)
		if err != nil {
			return "", fmt.Errorf("failed to marshal lead: %w", err)
		}
		return string(data), nil
	})
	if redis.IsNil(err) {
		return domain.ErrLeadNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to set lead status: %w", err)
	}
	return nil
}
