package engine

import (
	"errors"
	"fmt"

	"github.com/shaiso/Tenderflow/internal/domain"
)

var (
	// ErrInconsistentPosition — позиция тендера или вычисленная цель
	// отсутствует в каталоге. Означает ошибку данных, а не пользователя.
	ErrInconsistentPosition = errors.New("position is not in the step catalog")

	// ErrUnknownDecision — решение не approve и не reject.
	ErrUnknownDecision = errors.New("unknown decision")
)

// TransitionError — ошибка вычисления перехода с контекстом позиции.
type TransitionError struct {
	From domain.StepRef // текущая позиция тендера
	To   domain.StepRef // вычисленная цель (нулевая, если не дошли до неё)
	Err  error          // причина из каталога
}

// Error реализует интерфейс error.
func (e *TransitionError) Error() string {
	if e.To.IsZero() {
		return fmt.Sprintf("transition from %s: %v", e.From, e.Err)
	}
	return fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
}

// Unwrap возвращает ErrInconsistentPosition и исходную ошибку.
func (e *TransitionError) Unwrap() []error {
	return []error{ErrInconsistentPosition, e.Err}
}

// NewTransitionError создаёт ошибку перехода.
func NewTransitionError(from, to domain.StepRef, err error) *TransitionError {
	return &TransitionError{From: from, To: to, Err: err}
}
