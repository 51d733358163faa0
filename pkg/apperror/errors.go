// Package apperror defines the error taxonomy shared by the RAG pipeline and its transport.
package apperror

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindProvider        Kind = "PROVIDER"
	KindIndexCorruption Kind = "INDEX_CORRUPTION"
	KindTimeout         Kind = "TIMEOUT"
	KindInternal        Kind = "INTERNAL"
)

// Stages name the part of the pipeline an error came from.
const (
	StageIngestion   = "ingestion"
	StageRetrieval   = "retrieval"
	StageGeneration  = "generation"
	StageLocation    = "location"
	StagePersistence = "persistence"
)

// Sentinels for errors.Is checks.
var (
	ErrValidation      = errors.New("validation error")
	ErrProvider        = errors.New("provider error")
	ErrIndexCorruption = errors.New("index corruption")
	ErrTimeout         = errors.New("timeout")
	ErrInternal        = errors.New("internal error")
)

type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrProvider:
		return e.Kind == KindProvider
	case ErrIndexCorruption:
		return e.Kind == KindIndexCorruption
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrInternal:
		return e.Kind == KindInternal
	}
	return false
}

// PublicMessage is the text safe to show to end users in production.
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindValidation:
		return e.Message
	case KindTimeout:
		return fmt.Sprintf("%s timed out", stageOrDefault(e.Stage))
	default:
		return fmt.Sprintf("%s failed", stageOrDefault(e.Stage))
	}
}

func stageOrDefault(stage string) string {
	if stage == "" {
		return "request"
	}
	return stage
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Provider(stage string, err error) *Error {
	return &Error{Kind: KindProvider, Stage: stage, Message: "provider call failed", Err: err}
}

func IndexCorruption(err error) *Error {
	return &Error{Kind: KindIndexCorruption, Stage: StagePersistence, Message: "snapshot unreadable", Err: err}
}

func Timeout(stage string, err error) *Error {
	return &Error{Kind: KindTimeout, Stage: stage, Message: "deadline exceeded", Err: err}
}

func Internal(stage string, err error) *Error {
	return &Error{Kind: KindInternal, Stage: stage, Message: "unexpected failure", Err: err}
}

// FromContext classifies err produced while waiting on a bounded call.
// Deadline overruns become TimeoutError; anything already typed passes through;
// everything else is wrapped with fallback.
func FromContext(stage string, err error, fallback func(string, error) *Error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(stage, err)
	}
	if fallback == nil {
		fallback = Internal
	}
	return fallback(stage, err)
}

// WithStage attributes err to stage. Typed errors keep their kind; anything
// else becomes an internal error.
func WithStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		cp := *typed
		cp.Stage = stage
		return &cp
	}
	return Internal(stage, err)
}

// KindOf returns the kind of err, or KindInternal when err is untyped.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}
