package sequent

import (
	"context"

	"github.com/roach88/sequent/expr"
	"github.com/roach88/sequent/internal/evaluate"
)

// localProvider executes expressions in-process against materialized
// collections. It deliberately implements none of the asynchronous
// capabilities: dispatch treats sequences it backs as synchronous-only.
type localProvider struct{}

func (localProvider) Execute(ctx context.Context, e expr.Expression) (any, error) {
	return evaluate.Execute(ctx, e)
}

var local = localProvider{}

// Local returns the in-process provider backing sequences created with
// From. It is stateless and shared.
func Local() Provider { return local }
