package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errs "balanceledger/internal/domain/error"
	coreport "balanceledger/internal/domain/port/core"
)

const (
	actionsKey  = "scheduler:actions"
	payloadsKey = "scheduler:payloads"
)

// Redis implements the delayed-action scheduler on a redis sorted set: the
// member is the action name, the score is the fire time. A separate hash
// holds the payloads. Actions survive process restarts, which is the whole
// point of the safety net.
type Redis struct {
	client *redis.Client
	logger coreport.Logger
}

// NewRedis creates a redis-backed scheduler
func NewRedis(client *redis.Client, logger coreport.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

// Schedule registers a one-shot action. ZADD NX keeps an already-pending
// action in place and reports the conflict to the caller.
func (r *Redis) Schedule(ctx context.Context, name string, fireAt time.Time, payload []byte) error {
	added, err := r.client.ZAddNX(ctx, actionsKey, redis.Z{
		Score:  float64(fireAt.Unix()),
		Member: name,
	}).Result()
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}
	if added == 0 {
		return errs.ErrActionConflict
	}

	if err := r.client.HSet(ctx, payloadsKey, name, payload).Err(); err != nil {
		// Roll back the registration so a half-written action never fires.
		r.client.ZRem(ctx, actionsKey, name)
		return fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}

	r.logger.Debug("Scheduled delayed action", map[string]any{
		"action":  name,
		"fire_at": fireAt,
	})
	return nil
}

// Cancel removes a pending action by name
func (r *Redis) Cancel(ctx context.Context, name string) error {
	removed, err := r.client.ZRem(ctx, actionsKey, name).Result()
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}
	if err := r.client.HDel(ctx, payloadsKey, name).Err(); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}
	if removed == 0 {
		return errs.ErrActionNotFound
	}
	return nil
}

// Due returns all actions whose fire time has passed
func (r *Redis) Due(ctx context.Context, now time.Time) ([]Action, error) {
	names, err := r.client.ZRangeByScore(ctx, actionsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}

	actions := make([]Action, 0, len(names))
	for _, name := range names {
		payload, err := r.client.HGet(ctx, payloadsKey, name).Bytes()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
		}
		actions = append(actions, Action{Name: name, Payload: payload})
	}
	return actions, nil
}

// Remove deletes a completed action
func (r *Redis) Remove(ctx context.Context, name string) error {
	if err := r.client.ZRem(ctx, actionsKey, name).Err(); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrSchedulingFailure, err)
	}
	return r.client.HDel(ctx, payloadsKey, name).Err()
}
