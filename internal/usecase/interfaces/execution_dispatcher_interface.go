package interfaces

import (
	"orderflow/internal/domain/entities"
)

// IExecutionDispatcher hands a registered execution to the workflow engine.
// Dispatch returns immediately; the engine advances the execution asynchronously.
type IExecutionDispatcher interface {
	Dispatch(e entities.Execution)
}
