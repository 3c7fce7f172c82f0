package context

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

type requestIDKey struct{}
type jobKey struct{}

// WithRequestID stores the HTTP request id on ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithJob stores the scheduled job name on ctx.
func WithJob(ctx context.Context, job string) context.Context {
	job = strings.TrimSpace(job)
	if job == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKey{}, job)
}

func JobFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(jobKey{}).(string)
	return value
}

type runIDKey struct{}

// WithRunID stores the id of the scheduled run on ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(runIDKey{}).(string)
	return value
}

// EnsureRunID keeps a run id already on ctx or mints a ULID, so ids sort by
// start time in the job_runs table and in logs.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if runID := RunIDFromContext(ctx); runID != "" {
		return ctx, runID
	}
	runID := ulid.Make().String()
	return context.WithValue(ctx, runIDKey{}, runID), runID
}
