// Package coalesce deduplicates concurrent identical reads. It replaces
// ad hoc in-flight request maps with one component owned by the data-access
// layer: callers share the result of a single producer run per key.
package coalesce

import (
	"context"

	"golang.org/x/sync/singleflight"
)

type Group struct {
	sf singleflight.Group
}

func New() *Group {
	return &Group{}
}

// Do runs producer once per key across concurrent callers and hands every
// caller the shared result. The key must be a canonical query signature.
func (g *Group) Do(ctx context.Context, key string, producer func(context.Context) (interface{}, error)) (interface{}, error) {
	v, err, _ := g.sf.Do(key, func() (interface{}, error) {
		return producer(ctx)
	})
	return v, err
}

// Forget drops the cached in-flight entry so the next call re-runs the
// producer. Used after writes that invalidate the keyed read.
func (g *Group) Forget(key string) {
	g.sf.Forget(key)
}
