package domain

import "fmt"

// StepRef — позиция в workflow: пара (фаза, шаг).
type StepRef struct {
	Phase int `json:"phase" yaml:"phase"`
	Step  int `json:"step" yaml:"step"`
}

// String возвращает позицию в виде "phase.step".
func (r StepRef) String() string {
	return fmt.Sprintf("%d.%d", r.Phase, r.Step)
}

// IsZero возвращает true для незаданной позиции.
func (r StepRef) IsZero() bool {
	return r.Phase == 0 && r.Step == 0
}

// Before сравнивает позиции в порядке прохождения workflow.
func (r StepRef) Before(other StepRef) bool {
	if r.Phase != other.Phase {
		return r.Phase < other.Phase
	}
	return r.Step < other.Step
}

// StepDefinition — неизменяемое описание шага workflow.
type StepDefinition struct {
	// Phase — номер фазы (с 1).
	Phase int `json:"phase" yaml:"phase"`

	// StepNumber — номер шага внутри фазы (с 1, без пропусков).
	StepNumber int `json:"step_number" yaml:"step"`

	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// ResponsibleRole — роль, отвечающая за шаг.
	ResponsibleRole Role `json:"responsible_role" yaml:"role"`

	// EstimatedDays / MaxDays — нормативная и предельная длительность в днях.
	EstimatedDays int `json:"estimated_days" yaml:"estimated_days"`
	MaxDays       int `json:"max_days" yaml:"max_days"`

	// OnRejectTarget — куда вернуть тендер при отклонении этого шага.
	// nil — правило по умолчанию (предыдущий шаг).
	OnRejectTarget *StepRef `json:"on_reject_target,omitempty" yaml:"on_reject,omitempty"`
}

// Ref возвращает позицию шага.
func (d StepDefinition) Ref() StepRef {
	return StepRef{Phase: d.Phase, Step: d.StepNumber}
}
