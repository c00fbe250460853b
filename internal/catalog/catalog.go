package catalog

import (
	"fmt"
	"slices"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Catalog — каталог шагов workflow.
//
// Строится один раз при старте процесса и дальше только читается,
// поэтому доступ из нескольких горутин не требует блокировок.
// Все методы возвращают копии, вызывающий код не может изменить каталог.
type Catalog struct {
	phases [][]domain.StepDefinition // phases[i] — шаги фазы i+1 по порядку
	total  int
}

// New валидирует определения и строит каталог.
//
// Проверяет:
//   - каталог не пуст
//   - пары (фаза, шаг) уникальны
//   - фазы и шаги внутри фазы пронумерованы подряд с 1
//   - у шагов есть название, известная роль и корректные сроки
//   - on_reject ссылается на существующий шаг раньше текущего
//
// Порядок входных определений не важен.
func New(defs []domain.StepDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyCatalog
	}

	byPhase := make(map[int][]domain.StepDefinition)
	seen := make(map[domain.StepRef]bool, len(defs))
	maxPhase := 0

	for _, def := range defs {
		if err := validateStep(def); err != nil {
			return nil, err
		}

		ref := def.Ref()
		if seen[ref] {
			return nil, NewValidationError(def.Phase, def.StepNumber, "step",
				"duplicate step definition", ErrDuplicateStep)
		}
		seen[ref] = true

		byPhase[def.Phase] = append(byPhase[def.Phase], cloneStep(def))
		maxPhase = max(maxPhase, def.Phase)
	}

	c := &Catalog{phases: make([][]domain.StepDefinition, maxPhase)}

	for phase := 1; phase <= maxPhase; phase++ {
		steps, ok := byPhase[phase]
		if !ok {
			return nil, NewValidationError(phase, 0, "phase",
				"phase has no steps", ErrPhaseGap)
		}

		slices.SortFunc(steps, func(a, b domain.StepDefinition) int {
			return a.StepNumber - b.StepNumber
		})

		for i, step := range steps {
			if step.StepNumber != i+1 {
				return nil, NewValidationError(phase, i+1, "step",
					fmt.Sprintf("expected step %d, found %d", i+1, step.StepNumber), ErrStepGap)
			}
		}

		c.phases[phase-1] = steps
		c.total += len(steps)
	}

	// on_reject проверяем после построения, цель может быть в любой фазе
	for _, steps := range c.phases {
		for _, step := range steps {
			if step.OnRejectTarget == nil {
				continue
			}
			target := *step.OnRejectTarget
			if !c.Has(target) {
				return nil, NewValidationError(step.Phase, step.StepNumber, "on_reject",
					fmt.Sprintf("reject target %s does not exist", target), ErrInvalidRejectTarget)
			}
			if !target.Before(step.Ref()) {
				return nil, NewValidationError(step.Phase, step.StepNumber, "on_reject",
					fmt.Sprintf("reject target %s is not before the step", target), ErrForwardRejectTarget)
			}
		}
	}

	return c, nil
}

// validateStep проверяет поля одного шага.
func validateStep(def domain.StepDefinition) error {
	if def.Phase < 1 || def.StepNumber < 1 {
		return NewValidationError(def.Phase, def.StepNumber, "step",
			fmt.Sprintf("invalid position %d.%d", def.Phase, def.StepNumber), ErrInvalidPosition)
	}

	if def.Title == "" {
		return NewValidationError(def.Phase, def.StepNumber, "title",
			"step has empty title", ErrEmptyTitle)
	}

	if !def.ResponsibleRole.Valid() {
		return NewValidationError(def.Phase, def.StepNumber, "role",
			fmt.Sprintf("unknown role %q", def.ResponsibleRole), ErrUnknownRole)
	}

	if def.EstimatedDays < 0 || def.MaxDays < 0 {
		return NewValidationError(def.Phase, def.StepNumber, "max_days",
			"durations must not be negative", ErrInvalidDuration)
	}
	if def.MaxDays > 0 && def.MaxDays < def.EstimatedDays {
		return NewValidationError(def.Phase, def.StepNumber, "max_days",
			fmt.Sprintf("max_days %d is less than estimated_days %d", def.MaxDays, def.EstimatedDays), ErrInvalidDuration)
	}

	return nil
}

// Step возвращает определение шага по позиции.
func (c *Catalog) Step(ref domain.StepRef) (domain.StepDefinition, error) {
	if !c.Has(ref) {
		return domain.StepDefinition{}, fmt.Errorf("%w: %s", ErrStepNotFound, ref)
	}
	return cloneStep(c.phases[ref.Phase-1][ref.Step-1]), nil
}

// Has проверяет, что позиция существует в каталоге.
func (c *Catalog) Has(ref domain.StepRef) bool {
	if ref.Phase < 1 || ref.Phase > len(c.phases) {
		return false
	}
	return ref.Step >= 1 && ref.Step <= len(c.phases[ref.Phase-1])
}

// StepsForPhase возвращает шаги фазы по порядку.
// Для несуществующей фазы возвращает nil.
func (c *Catalog) StepsForPhase(phase int) []domain.StepDefinition {
	if phase < 1 || phase > len(c.phases) {
		return nil
	}
	steps := make([]domain.StepDefinition, len(c.phases[phase-1]))
	for i, s := range c.phases[phase-1] {
		steps[i] = cloneStep(s)
	}
	return steps
}

// Steps возвращает все шаги в порядке прохождения workflow.
func (c *Catalog) Steps() []domain.StepDefinition {
	steps := make([]domain.StepDefinition, 0, c.total)
	for phase := 1; phase <= len(c.phases); phase++ {
		steps = append(steps, c.StepsForPhase(phase)...)
	}
	return steps
}

// TotalSteps возвращает количество шагов во всех фазах.
func (c *Catalog) TotalSteps() int {
	return c.total
}

// PhaseCount возвращает количество фаз.
func (c *Catalog) PhaseCount() int {
	return len(c.phases)
}

// First возвращает начальный шаг (1,1).
func (c *Catalog) First() domain.StepDefinition {
	return cloneStep(c.phases[0][0])
}

// LastInPhase возвращает последний шаг фазы.
func (c *Catalog) LastInPhase(phase int) (domain.StepDefinition, error) {
	if phase < 1 || phase > len(c.phases) {
		return domain.StepDefinition{}, fmt.Errorf("%w: phase %d", ErrStepNotFound, phase)
	}
	steps := c.phases[phase-1]
	return cloneStep(steps[len(steps)-1]), nil
}

// cloneStep копирует определение вместе с указателем on_reject.
func cloneStep(s domain.StepDefinition) domain.StepDefinition {
	if s.OnRejectTarget != nil {
		target := *s.OnRejectTarget
		s.OnRejectTarget = &target
	}
	return s
}
