package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
)

// Kind classifies a service error for the HTTP layer and for callers that
// need to tell user mistakes from backend failures.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindInactive   Kind = "inactive"
	KindConflict   Kind = "conflict"
	KindDependency Kind = "dependency"
	KindBackend    Kind = "backend"
	// KindPartial means some writes of a multi-step operation were applied
	// before the failure. Nothing is rolled back.
	KindPartial   Kind = "partial"
	KindCancelled Kind = "cancelled"
	KindForbidden Kind = "forbidden"
)

// Error is the error type returned by services and workflows. Message is
// safe to show to the user.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

func validationError(op, msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: msg, Fields: fields}
}

func partialError(op, msg string, err error) *Error {
	return &Error{Kind: KindPartial, Op: op, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindBackend for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindBackend
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Ocorreu um erro inesperado."
}

// storeError converts a repository error into a service error. entity is the
// user-facing noun ("Curso", "Sala", ...). Backend failures keep the
// collaborator message appended.
func storeError(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Op: op, Message: entity + " não encontrado(a).", Err: err}
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindConflict, Op: op, Message: entity + " já existe.", Err: err}
	case errors.Is(err, repository.ErrHasDependents):
		return &Error{Kind: KindDependency, Op: op, Message: entity + " está a ser usado(a) por outros registos.", Err: err}
	}
	return &Error{Kind: KindBackend, Op: op, Message: "Erro ao comunicar com a base de dados: " + err.Error(), Err: err}
}

// FieldsOf returns the per-field validation messages carried by err.
func FieldsOf(err error) map[string]string {
	var se *Error
	if errors.As(err, &se) {
		return se.Fields
	}
	return nil
}
