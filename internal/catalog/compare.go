package catalog

import (
	"fmt"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Compare сверяет структуру двух каталогов: набор позиций, роли
// и цели on_reject. Названия, описания и сроки не сравниваются.
//
// Возвращает ValidationError с ErrCatalogMismatch на первой
// расходящейся позиции или nil, если структура совпадает.
func Compare(want, got *Catalog) error {
	for _, w := range want.Steps() {
		g, err := got.Step(w.Ref())
		if err != nil {
			return NewValidationError(w.Phase, w.StepNumber, "step",
				"step is missing from the stored catalog", ErrCatalogMismatch)
		}
		if g.ResponsibleRole != w.ResponsibleRole {
			return NewValidationError(w.Phase, w.StepNumber, "role",
				fmt.Sprintf("stored role %q, loaded role %q", g.ResponsibleRole, w.ResponsibleRole), ErrCatalogMismatch)
		}
		if !sameTarget(g.OnRejectTarget, w.OnRejectTarget) {
			return NewValidationError(w.Phase, w.StepNumber, "on_reject",
				fmt.Sprintf("stored reject target %s, loaded reject target %s",
					targetString(g.OnRejectTarget), targetString(w.OnRejectTarget)), ErrCatalogMismatch)
		}
	}

	for _, g := range got.Steps() {
		if !want.Has(g.Ref()) {
			return NewValidationError(g.Phase, g.StepNumber, "step",
				"stored step is not in the loaded catalog", ErrCatalogMismatch)
		}
	}
	return nil
}

func sameTarget(a, b *domain.StepRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func targetString(r *domain.StepRef) string {
	if r == nil {
		return "default"
	}
	return r.String()
}
