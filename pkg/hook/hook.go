package hook

import "context"

// Hook applies lease changes to the system. Run returns the exit status;
// zero accepts the change.
type Hook interface {
	Run(ctx context.Context, env *Env) int
}

// Func adapts a function to Hook.
type Func func(ctx context.Context, env *Env) int

func (f Func) Run(ctx context.Context, env *Env) int {
	return f(ctx, env)
}
