package catalog

import (
	"fmt"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Фазы эталонного workflow.
const (
	PhasePreparation = 1
	PhaseExecution   = 2
	PhasePayment     = 3
)

// Reference возвращает определения шагов эталонного workflow:
// подготовка (23 шага), исполнение (8 шагов), оплата (7 шагов).
func Reference() []domain.StepDefinition {
	var defs []domain.StepDefinition
	add := func(phase int, role domain.Role, title, description string, estimated, maxDays int, onReject *domain.StepRef) {
		defs = append(defs, domain.StepDefinition{
			Phase:           phase,
			StepNumber:      len(stepsIn(defs, phase)) + 1,
			Title:           title,
			Description:     description,
			ResponsibleRole: role,
			EstimatedDays:   estimated,
			MaxDays:         maxDays,
			OnRejectTarget:  onReject,
		})
	}

	const (
		tech     = domain.RoleTechnicalService
		markets  = domain.RoleMarketsService
		control  = domain.RoleStateControl
		budget   = domain.RoleBudgetService
		ordering = domain.RoleOrderingService
		treasury = domain.RoleTreasurer
	)

	// Phase 1: préparation
	add(PhasePreparation, tech, "Expression du besoin", "Note de besoin et justification de l'achat", 3, 5, nil)
	add(PhasePreparation, tech, "Rédaction du CPS", "Cahier des prescriptions spéciales", 7, 15, nil)
	add(PhasePreparation, tech, "Estimation confidentielle", "Estimation du coût des prestations", 2, 5, nil)
	add(PhasePreparation, budget, "Vérification de la disponibilité budgétaire", "Contrôle des crédits ouverts", 2, 5, nil)
	add(PhasePreparation, budget, "Engagement prévisionnel", "Réservation des crédits", 2, 3, nil)
	add(PhasePreparation, markets, "Validation du dossier technique", "Revue du CPS et de l'estimation", 3, 7, nil)
	add(PhasePreparation, markets, "Rédaction du règlement de consultation", "", 3, 5, nil)
	add(PhasePreparation, markets, "Constitution du DAO", "Dossier d'appel d'offres complet", 2, 5, nil)
	add(PhasePreparation, control, "Visa préalable du contrôle d'État", "", 5, 10, nil)
	add(PhasePreparation, ordering, "Approbation du DAO", "Approbation par l'ordonnateur", 2, 5, &domain.StepRef{Phase: 1, Step: 6})
	add(PhasePreparation, markets, "Rédaction de l'avis d'appel d'offres", "", 1, 3, nil)
	add(PhasePreparation, markets, "Publication de l'avis", "Presse nationale et portail des marchés publics", 2, 5, nil)
	add(PhasePreparation, markets, "Mise à disposition du DAO", "Retrait du dossier par les concurrents", 21, 30, nil)
	add(PhasePreparation, tech, "Réponses aux demandes d'éclaircissement", "", 5, 10, nil)
	add(PhasePreparation, markets, "Réception des plis", "Enregistrement des offres reçues", 1, 2, nil)
	add(PhasePreparation, ordering, "Constitution de la commission d'ouverture", "", 1, 3, nil)
	add(PhasePreparation, markets, "Ouverture des plis", "Séance publique d'ouverture", 1, 2, nil)
	add(PhasePreparation, tech, "Évaluation des offres techniques", "", 7, 15, nil)
	add(PhasePreparation, markets, "Évaluation des offres financières", "", 3, 7, nil)
	add(PhasePreparation, markets, "Rapport d'analyse et proposition d'attribution", "", 2, 5, nil)
	add(PhasePreparation, control, "Visa du contrôle d'État sur l'attribution", "", 5, 10, &domain.StepRef{Phase: 1, Step: 18})
	add(PhasePreparation, ordering, "Notification de l'attribution", "Notification au titulaire et aux soumissionnaires", 1, 3, nil)
	add(PhasePreparation, ordering, "Approbation et signature du marché", "", 3, 7, nil)

	// Phase 2: exécution
	add(PhaseExecution, ordering, "Ordre de service de commencement", "", 1, 3, nil)
	add(PhaseExecution, tech, "Réunion de démarrage", "", 2, 5, nil)
	add(PhaseExecution, tech, "Suivi de l'exécution", "Contrôle des prestations et comptes rendus", 30, 90, nil)
	add(PhaseExecution, tech, "Réception provisoire", "Procès-verbal de réception provisoire", 2, 5, nil)
	add(PhaseExecution, tech, "Établissement des décomptes", "Attachements et décomptes des prestations", 3, 7, nil)
	add(PhaseExecution, markets, "Vérification des décomptes", "", 3, 7, nil)
	add(PhaseExecution, control, "Visa du contrôle d'État sur les décomptes", "", 5, 10, &domain.StepRef{Phase: 2, Step: 5})
	add(PhaseExecution, tech, "Réception définitive", "Procès-verbal de réception définitive", 2, 5, nil)

	// Phase 3: paiement
	add(PhasePayment, budget, "Liquidation de la dépense", "", 2, 5, nil)
	add(PhasePayment, ordering, "Ordonnancement", "Émission de l'ordre de paiement", 2, 5, nil)
	add(PhasePayment, control, "Visa du contrôle d'État sur l'ordonnancement", "", 3, 7, &domain.StepRef{Phase: 3, Step: 1})
	add(PhasePayment, treasury, "Prise en charge par le trésorier", "", 2, 5, nil)
	add(PhasePayment, treasury, "Contrôle de la validité de la créance", "", 2, 5, nil)
	add(PhasePayment, treasury, "Paiement du titulaire", "", 1, 3, nil)
	add(PhasePayment, markets, "Mainlevée de la caution et clôture", "Restitution de la caution définitive et archivage", 3, 10, nil)

	return defs
}

// Default строит каталог из эталонных определений.
func Default() (*Catalog, error) {
	return New(Reference())
}

// MustDefault как Default, но паникует на ошибке. Эталонная таблица
// проверяется тестами, поэтому паника означает ошибку сборки.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(fmt.Sprintf("catalog: reference table is invalid: %v", err))
	}
	return c
}

// stepsIn возвращает определения указанной фазы.
func stepsIn(defs []domain.StepDefinition, phase int) []domain.StepDefinition {
	var out []domain.StepDefinition
	for _, d := range defs {
		if d.Phase == phase {
			out = append(out, d)
		}
	}
	return out
}
