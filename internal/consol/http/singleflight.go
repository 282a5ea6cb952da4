package http

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var runLoadGroup singleflight.Group

func singleflightLoad(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := runLoadGroup.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
