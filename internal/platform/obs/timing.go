package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

// RequestIDKey carries the per-request id assigned by the HTTP layer.
// Spawn-loop operations run without one; their log lines omit it.
const RequestIDKey ctxKey = "req_id"

// Time measures an operation and logs its duration on return. Use with
// a named error return so failures are logged with the timing:
//
//	defer obs.Time(ctx, "geo.CountBuildingsNear")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start).Milliseconds()

		prefix := "op=" + name
		if reqID != "" {
			prefix = "req_id=" + reqID + " " + prefix
		}
		if errp != nil && *errp != nil {
			log.Printf("%s dur=%dms err=%v", prefix, dur, *errp)
			return
		}
		log.Printf("%s dur=%dms", prefix, dur)
	}
}
