package interfaces

import (
	"context"
	"errors"

	"orderflow/internal/domain/entities"
)

// ErrExecutionVersionConflict is returned by Update when the stored version moved on.
var ErrExecutionVersionConflict = errors.New("execution version conflict")

// IExecutionRepository is the execution registry keyed by execution id.
//
// CreateIfAbsent is the single atomic create-if-absent write that closes the
// duplicate-start race: of two concurrent deliveries of one order, exactly one creates.

type IExecutionRepository interface {
	CreateIfAbsent(ctx context.Context, e entities.Execution) (entities.Execution, bool, error)
	GetByID(ctx context.Context, id string) (entities.Execution, error)
	// Update stores e if the stored version equals e.Version and returns the row with the bumped version.
	Update(ctx context.Context, e entities.Execution) (entities.Execution, error)
	ListActive(ctx context.Context, limit int) ([]entities.Execution, error)
}
