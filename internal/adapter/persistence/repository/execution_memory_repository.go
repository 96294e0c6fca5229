package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"orderflow/internal/domain/entities"
	"orderflow/internal/usecase/interfaces"
)

// ExecutionMemoryRepository is an in-process execution registry. Create-if-absent
// and version checks happen under one mutex, so it is linearizable.
type ExecutionMemoryRepository struct {
	mu         sync.Mutex
	executions map[string]entities.Execution
}

var _ interfaces.IExecutionRepository = (*ExecutionMemoryRepository)(nil)

func NewExecutionMemoryRepository() *ExecutionMemoryRepository {
	return &ExecutionMemoryRepository{executions: make(map[string]entities.Execution)}
}

func (r *ExecutionMemoryRepository) CreateIfAbsent(_ context.Context, e entities.Execution) (entities.Execution, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.executions[e.ID]; ok {
		return cloneExecution(existing), false, nil
	}
	r.executions[e.ID] = cloneExecution(e)
	return cloneExecution(e), true, nil
}

func (r *ExecutionMemoryRepository) GetByID(_ context.Context, id string) (entities.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneExecution(r.executions[id]), nil
}

func (r *ExecutionMemoryRepository) Update(_ context.Context, e entities.Execution) (entities.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.executions[e.ID]
	if !ok || current.Version != e.Version {
		return entities.Execution{}, interfaces.ErrExecutionVersionConflict
	}
	e.Version++
	r.executions[e.ID] = cloneExecution(e)
	return cloneExecution(e), nil
}

// ListActive returns non-terminal executions, oldest first.
func (r *ExecutionMemoryRepository) ListActive(_ context.Context, limit int) ([]entities.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]entities.Execution, 0)
	for _, e := range r.executions {
		if e.State.IsTerminal() {
			continue
		}
		items = append(items, cloneExecution(e))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].StartedAt.Equal(items[j].StartedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].StartedAt.Before(items[j].StartedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func cloneExecution(e entities.Execution) entities.Execution {
	if e.Payload != nil {
		e.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	if e.History != nil {
		e.History = append([]entities.StateTransition(nil), e.History...)
	}
	return e
}
