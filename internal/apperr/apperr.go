// Package apperr classifies service errors so transport layers can map them
// to a response without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindBadRequest Kind = "bad_request"
	KindForbidden  Kind = "forbidden"
	KindInternal   Kind = "internal"
)

// ActiveSessionRef identifies an already-running session so a caller hitting
// a start conflict can offer to stop or resume it.
type ActiveSessionRef struct {
	SessionID  uint      `json:"session_id"`
	WorkItemID uint      `json:"work_item_id"`
	StartedAt  time.Time `json:"started_at"`
}

type classified struct {
	kind   Kind
	msg    string
	active *ActiveSessionRef
	cause  error
}

func (e *classified) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *classified) Unwrap() error { return e.cause }

func NotFound(format string, args ...any) error {
	return &classified{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) error {
	return &classified{kind: KindBadRequest, msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &classified{kind: KindForbidden, msg: fmt.Sprintf(format, args...)}
}

// Conflict carries the existing active session alongside the message.
func Conflict(active ActiveSessionRef, format string, args ...any) error {
	return &classified{kind: KindConflict, msg: fmt.Sprintf(format, args...), active: &active}
}

// Internal wraps an unexpected failure (usually a database error).
func Internal(cause error, format string, args ...any) error {
	return &classified{kind: KindInternal, msg: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf returns the classification of err, or KindInternal for plain errors.
func KindOf(err error) Kind {
	var c *classified
	if errors.As(err, &c) {
		return c.kind
	}
	return KindInternal
}

// ActiveSessionOf returns the conflicting session attached to err, if any.
func ActiveSessionOf(err error) *ActiveSessionRef {
	var c *classified
	if errors.As(err, &c) {
		return c.active
	}
	return nil
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
