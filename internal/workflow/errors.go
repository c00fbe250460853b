package workflow

import "errors"

// Ошибки сервиса workflow.
var (
	// ErrNotFound — тендер не найден.
	ErrNotFound = errors.New("tender not found")

	// ErrActorNotFound — действующий пользователь не найден.
	ErrActorNotFound = errors.New("actor not found")

	// ErrInvalidState — тендер не в статусе active.
	ErrInvalidState = errors.New("tender is not active")

	// ErrForbidden — пользователь не может принимать решение по текущему шагу.
	ErrForbidden = errors.New("actor is not allowed to act on this step")

	// ErrInternalInconsistency — позиция тендера не согласуется с каталогом шагов.
	ErrInternalInconsistency = errors.New("internal inconsistency")

	// ErrConflict — тендер изменён параллельным переходом.
	ErrConflict = errors.New("concurrent transition")

	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("validation failed")
)
