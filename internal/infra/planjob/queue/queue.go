package queue

import (
	"context"

	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

// Handler processes one job id.
type Handler func(ctx context.Context, jobID string) error

// HandlerQueue supports setting a handler for job delivery and running the delivery loop.
type HandlerQueue interface {
	planjob.Queue
	SetHandler(handler Handler)
	Run(ctx context.Context) error
}
