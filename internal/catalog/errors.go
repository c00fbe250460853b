package catalog

import (
	"errors"
	"fmt"
)

// ErrStepNotFound — шага с такой позицией нет в каталоге.
var ErrStepNotFound = errors.New("step not found")

// Ошибки валидации каталога. Любая из них фатальна при загрузке.
var (
	// ErrEmptyCatalog — каталог не содержит шагов.
	ErrEmptyCatalog = errors.New("catalog has no steps")

	// ErrInvalidPosition — номер фазы или шага меньше 1.
	ErrInvalidPosition = errors.New("phase and step must be positive")

	// ErrDuplicateStep — пара (фаза, шаг) встречается дважды.
	ErrDuplicateStep = errors.New("duplicate step")

	// ErrPhaseGap — фазы пронумерованы не подряд с 1.
	ErrPhaseGap = errors.New("gap in phase numbering")

	// ErrStepGap — шаги внутри фазы пронумерованы не подряд с 1.
	ErrStepGap = errors.New("gap in step numbering")

	// ErrEmptyTitle — у шага нет названия.
	ErrEmptyTitle = errors.New("step has empty title")

	// ErrUnknownRole — ответственная роль не входит в перечисление.
	ErrUnknownRole = errors.New("unknown responsible role")

	// ErrInvalidDuration — длительности отрицательные или max < estimated.
	ErrInvalidDuration = errors.New("invalid step duration")

	// ErrInvalidRejectTarget — on_reject ссылается на несуществующий шаг.
	ErrInvalidRejectTarget = errors.New("reject target does not exist")

	// ErrForwardRejectTarget — on_reject указывает на сам шаг или на шаг после него.
	ErrForwardRejectTarget = errors.New("reject target must precede the step")

	// ErrCatalogMismatch — сохранённый каталог расходится с загруженным.
	ErrCatalogMismatch = errors.New("stored catalog differs from loaded catalog")
)

// ValidationError — ошибка валидации каталога с указанием шага.
type ValidationError struct {
	Phase   int    // фаза шага (0, если ошибка не про конкретный шаг)
	Step    int    // номер шага
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Phase > 0 && e.Step > 0 {
		return fmt.Sprintf("step %d.%d: %s", e.Phase, e.Step, e.Message)
	}
	if e.Phase > 0 {
		return fmt.Sprintf("phase %d: %s", e.Phase, e.Message)
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(phase, step int, field, message string, err error) *ValidationError {
	return &ValidationError{
		Phase:   phase,
		Step:    step,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
