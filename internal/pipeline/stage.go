package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Stage names a step of the consultation.
type Stage string

const (
	StagePrepare    Stage = "prepare"
	StageNormalize  Stage = "normalize"
	StageTranscode  Stage = "transcode"
	StageTranscribe Stage = "transcribe"
	StageTranslate  Stage = "translate"
	StageReason     Stage = "reason"
	StageSynthesize Stage = "synthesize"
)

// StageError is a failure attributed to a stage. Stack is captured where the
// failure was observed.
type StageError struct {
	Stage Stage
	Err   error
	Stack []byte
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Outcome is the result of one stage: a value or a StageError.
type Outcome[T any] struct {
	Value T
	Err   *StageError
}

// OK reports whether the stage succeeded.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// Get returns the value, or the stage error for fatal stages.
func (o Outcome[T]) Get() (T, error) {
	if o.Err != nil {
		var zero T
		return zero, o.Err
	}
	return o.Value, nil
}

// Recover returns the value, or fallback after passing the failure to
// onFallback. It applies the policy of stages that must not abort the
// consultation.
func (o Outcome[T]) Recover(fallback T, onFallback func(*StageError)) T {
	if o.Err == nil {
		return o.Value
	}
	if onFallback != nil {
		onFallback(o.Err)
	}
	return fallback
}

// attempt runs fn as stage and records its duration.
func attempt[T any](ctx context.Context, c *Coordinator, stage Stage, fn func(context.Context) (T, error)) Outcome[T] {
	start := time.Now()
	v, err := fn(ctx)
	c.metrics.ObserveStage(string(stage), time.Since(start), err)
	if err != nil {
		return Outcome[T]{Err: &StageError{Stage: stage, Err: err, Stack: debug.Stack()}}
	}
	return Outcome[T]{Value: v}
}

// step is attempt for stages that produce no value.
func step(ctx context.Context, c *Coordinator, stage Stage, fn func(context.Context) error) error {
	_, err := attempt(ctx, c, stage, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}).Get()
	return err
}
