package engine

import (
	"fmt"

	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/domain"
)

// Decision — решение по текущему шагу.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Plan — вычисленный переход, ещё не применённый к тендеру.
type Plan struct {
	Decision Decision

	// From — шаг, который покидает тендер.
	From domain.StepDefinition

	// To — целевой шаг. Для терминального перехода совпадает с From.
	To domain.StepDefinition

	// Terminal — approve на последнем шаге последней фазы: тендер завершается.
	Terminal bool

	// Moved — позиция изменилась. False для терминального перехода
	// и для отклонения на шаге (1,1).
	Moved bool
}

// Engine вычисляет переходы по каталогу шагов.
// Не имеет состояния и не обращается к хранилищу.
type Engine struct {
	catalog *catalog.Catalog
}

// New создаёт Engine поверх каталога.
func New(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// Catalog возвращает каталог, по которому считаются переходы.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Plan вычисляет переход для решения.
func (e *Engine) Plan(from domain.StepRef, decision Decision) (Plan, error) {
	switch decision {
	case DecisionApprove:
		return e.PlanApprove(from)
	case DecisionReject:
		return e.PlanReject(from)
	default:
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownDecision, decision)
	}
}

// PlanApprove вычисляет переход вперёд:
//  1. следующий шаг той же фазы, если он есть
//  2. иначе первый шаг следующей фазы
//  3. иначе терминальный переход (тендер завершён)
func (e *Engine) PlanApprove(from domain.StepRef) (Plan, error) {
	current, err := e.current(from)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Decision: DecisionApprove, From: current}

	candidates := []domain.StepRef{
		{Phase: from.Phase, Step: from.Step + 1},
		{Phase: from.Phase + 1, Step: 1},
	}
	for _, next := range candidates {
		if !e.catalog.Has(next) {
			continue
		}
		plan.To, err = e.target(from, next)
		if err != nil {
			return Plan{}, err
		}
		plan.Moved = true
		return plan, nil
	}

	plan.To = current
	plan.Terminal = true
	return plan, nil
}

// PlanReject вычисляет возврат на доработку:
//  1. OnRejectTarget шага, если задан
//  2. иначе предыдущий шаг той же фазы
//  3. иначе последний шаг предыдущей фазы
//  4. на шаге (1,1) позиция не меняется
func (e *Engine) PlanReject(from domain.StepRef) (Plan, error) {
	current, err := e.current(from)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Decision: DecisionReject, From: current}

	var prev domain.StepRef
	switch {
	case current.OnRejectTarget != nil:
		prev = *current.OnRejectTarget
	case from.Step > 1:
		prev = domain.StepRef{Phase: from.Phase, Step: from.Step - 1}
	case from.Phase > 1:
		last, err := e.catalog.LastInPhase(from.Phase - 1)
		if err != nil {
			return Plan{}, e.inconsistent(from, err)
		}
		prev = last.Ref()
	default:
		plan.To = current
		return plan, nil
	}

	plan.To, err = e.target(from, prev)
	if err != nil {
		return Plan{}, err
	}
	plan.Moved = plan.To.Ref() != from
	return plan, nil
}

// current находит определение текущего шага.
func (e *Engine) current(from domain.StepRef) (domain.StepDefinition, error) {
	def, err := e.catalog.Step(from)
	if err != nil {
		return domain.StepDefinition{}, e.inconsistent(from, err)
	}
	return def, nil
}

// target проверяет вычисленную позицию по каталогу перед применением.
func (e *Engine) target(from, to domain.StepRef) (domain.StepDefinition, error) {
	def, err := e.catalog.Step(to)
	if err != nil {
		return domain.StepDefinition{}, NewTransitionError(from, to, err)
	}
	return def, nil
}

func (e *Engine) inconsistent(from domain.StepRef, err error) error {
	return NewTransitionError(from, domain.StepRef{}, err)
}
