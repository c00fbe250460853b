package api

import (
	"net/http"
	"strconv"
)

// GetCatalog возвращает каталог шагов по фазам.
// GET /api/v1/catalog
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c := h.tenders.Catalog()

	resp := CatalogResponse{
		TotalSteps: c.TotalSteps(),
		Phases:     make([]PhaseResponse, 0, c.PhaseCount()),
	}
	for phase := 1; phase <= c.PhaseCount(); phase++ {
		resp.Phases = append(resp.Phases, PhaseResponse{
			Phase: phase,
			Steps: c.StepsForPhase(phase),
		})
	}

	Success(w, resp)
}

// GetPhase возвращает шаги одной фазы.
// GET /api/v1/catalog/phases/{phase}
func (h *Handler) GetPhase(w http.ResponseWriter, r *http.Request) {
	phase, err := strconv.Atoi(r.PathValue("phase"))
	if err != nil || phase < 1 {
		BadRequest(w, "invalid phase")
		return
	}

	steps := h.tenders.Catalog().StepsForPhase(phase)
	if steps == nil {
		NotFound(w, "phase not found")
		return
	}

	Success(w, PhaseResponse{Phase: phase, Steps: steps})
}
