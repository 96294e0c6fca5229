package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "orderflow"

// createExecutionScript writes the execution hash only when the key is absent.
//
// KEYS[1]: execution hash, KEYS[2]: active set
// ARGV[1]: version, ARGV[2]: encoded execution, ARGV[3]: execution id, ARGV[4]: "1" when terminal
var createExecutionScript = redis.NewScript(`
if redis.call('exists', KEYS[1]) == 1 then
    return 0
end
redis.call('hset', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
if ARGV[4] == '1' then
    redis.call('srem', KEYS[2], ARGV[3])
else
    redis.call('sadd', KEYS[2], ARGV[3])
end
return 1
`)

// updateExecutionScript replaces the execution only when the stored version matches.
//
// KEYS[1]: execution hash, KEYS[2]: active set
// ARGV[1]: expected version, ARGV[2]: new version, ARGV[3]: encoded execution,
// ARGV[4]: execution id, ARGV[5]: "1" when terminal
var updateExecutionScript = redis.NewScript(`
local current = redis.call('hget', KEYS[1], 'version')
if current ~= ARGV[1] then
    return 0
end
redis.call('hset', KEYS[1], 'version', ARGV[2], 'data', ARGV[3])
if ARGV[5] == '1' then
    redis.call('srem', KEYS[2], ARGV[4])
else
    redis.call('sadd', KEYS[2], ARGV[4])
end
return 1
`)

// ExecutionRedisRepository keeps the execution registry in Redis. Each execution
// is a hash {version, data}; non-terminal ids are also members of an active set.
type ExecutionRedisRepository struct {
	client redis.UniversalClient
	prefix string
}

var _ interfaces.IExecutionRepository = (*ExecutionRedisRepository)(nil)

func NewExecutionRedisRepository(client redis.UniversalClient, prefix string) *ExecutionRedisRepository {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &ExecutionRedisRepository{client: client, prefix: prefix}
}

func (r *ExecutionRedisRepository) executionKey(id string) string {
	return fmt.Sprintf("%s:execution:{%s}", r.prefix, id)
}

func (r *ExecutionRedisRepository) activeKey() string {
	return r.prefix + ":executions:active"
}

func (r *ExecutionRedisRepository) CreateIfAbsent(ctx context.Context, e entities.Execution) (entities.Execution, bool, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return entities.Execution{}, false, err
	}

	created, err := createExecutionScript.Run(ctx, r.client,
		[]string{r.executionKey(e.ID), r.activeKey()},
		strconv.FormatInt(e.Version, 10), data, e.ID, terminalFlag(e.State),
	).Int()
	if err != nil {
		return entities.Execution{}, false, fmt.Errorf("redis create execution: %w", err)
	}
	if created == 0 {
		existing, err := r.GetByID(ctx, e.ID)
		return existing, false, err
	}
	return e, true, nil
}

func (r *ExecutionRedisRepository) GetByID(ctx context.Context, id string) (entities.Execution, error) {
	data, err := r.client.HGet(ctx, r.executionKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.Execution{}, nil
		}
		return entities.Execution{}, err
	}
	var e entities.Execution
	if err := json.Unmarshal(data, &e); err != nil {
		return entities.Execution{}, err
	}
	return e, nil
}

func (r *ExecutionRedisRepository) Update(ctx context.Context, e entities.Execution) (entities.Execution, error) {
	expected := e.Version
	e.Version = expected + 1

	data, err := json.Marshal(e)
	if err != nil {
		return entities.Execution{}, err
	}

	ok, err := updateExecutionScript.Run(ctx, r.client,
		[]string{r.executionKey(e.ID), r.activeKey()},
		strconv.FormatInt(expected, 10), strconv.FormatInt(e.Version, 10), data, e.ID, terminalFlag(e.State),
	).Int()
	if err != nil {
		return entities.Execution{}, fmt.Errorf("redis update execution: %w", err)
	}
	if ok == 0 {
		return entities.Execution{}, interfaces.ErrExecutionVersionConflict
	}
	return e, nil
}

func (r *ExecutionRedisRepository) ListActive(ctx context.Context, limit int) ([]entities.Execution, error) {
	ids, err := r.client.SMembers(ctx, r.activeKey()).Result()
	if err != nil {
		return nil, err
	}

	items := make([]entities.Execution, 0, len(ids))
	for _, id := range ids {
		e, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if e.ID == "" || e.State.IsTerminal() {
			continue
		}
		items = append(items, e)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func terminalFlag(s entities.ExecutionState) string {
	if s.IsTerminal() {
		return "1"
	}
	return "0"
}
