package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a speak request failed.
type ErrorKind string

const (
	KindNotFound  ErrorKind = "not_found"
	KindUpstream  ErrorKind = "upstream_failure"
	KindTransform ErrorKind = "transform_failure"
)

// PipelineError is the only error Speak returns. Status is an HTTP status code.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Status  int
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// LocationMiss reports whether the coordinate had no place or no article.
func (e *PipelineError) LocationMiss() bool {
	return e.Kind == KindNotFound
}

type statusCoder interface {
	StatusCode() int
}

func notFoundError(message string) *PipelineError {
	return &PipelineError{Kind: KindNotFound, Message: message, Status: http.StatusNotFound}
}

// upstreamError keeps the status reported by the collaborator, if any. Only
// the place lookup uses it; later stages report serverError.
func upstreamError(message string, err error) *PipelineError {
	status := http.StatusInternalServerError
	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() > 0 {
		status = sc.StatusCode()
	}
	return &PipelineError{Kind: KindUpstream, Message: message, Status: status, Err: err}
}

// serverError is an upstream failure that always surfaces as a 500, whatever
// status the cause carries.
func serverError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindUpstream, Message: message, Status: http.StatusInternalServerError, Err: err}
}

func transformError(err error) *PipelineError {
	return &PipelineError{
		Kind:    KindTransform,
		Message: "error parsing article",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}
