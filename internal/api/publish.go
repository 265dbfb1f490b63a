package api

import (
	"context"
	"net/http"

	"github.com/erazemk/omara/internal/live"
	"github.com/erazemk/omara/internal/metrics"
)

// publish pushes fresh snapshots after a successful write. The write has
// already happened, so a failed reload is only logged (by the hub).
func publish(r *http.Request, hub *live.Hub, owner string, kinds ...live.Kind) {
	ctx := context.WithoutCancel(r.Context())
	for _, kind := range kinds {
		hub.Publish(ctx, owner, kind)
	}
}

// recordMutation classifies an outcome for the mutation counter.
func recordMutation(kind string, err error, noOp bool) {
	switch {
	case err != nil && isClientError(err):
		metrics.Mutation(kind, "rejected")
	case err != nil:
		metrics.Mutation(kind, "failed")
	case noOp:
		metrics.Mutation(kind, "noop")
	default:
		metrics.Mutation(kind, "ok")
	}
}
