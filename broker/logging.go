package broker

import (
	"context"

	"github.com/jonwraymond/resilientmq/observe"
)

// resourceLogAdapter bridges observe.Logger, which carries a context and a
// typed Field slice, to resilience.ResourceLogger, which the resilience
// package keeps free of any observability dependency. kv pairs arrive as
// alternating key/value arguments and are folded into observe.Field values.
type resourceLogAdapter struct {
	ctx context.Context
	log observe.Logger
}

func newResourceLogAdapter(ctx context.Context, log observe.Logger, meta observe.ResourceMeta) *resourceLogAdapter {
	return &resourceLogAdapter{ctx: ctx, log: log.WithResource(meta)}
}

func (a *resourceLogAdapter) Warn(msg string, kv ...any) {
	a.log.Warn(a.ctx, msg, fields(kv)...)
}

func (a *resourceLogAdapter) Error(msg string, kv ...any) {
	a.log.Error(a.ctx, msg, fields(kv)...)
}

func fields(kv []any) []observe.Field {
	fs := make([]observe.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fs = append(fs, observe.Field{Key: key, Value: kv[i+1]})
	}
	return fs
}
