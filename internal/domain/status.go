package domain

// TenderStatus — статус тендера.
//
// Жизненный цикл:
//
//	active → completed (approve на последнем шаге последней фазы)
//	       ↘ cancelled (отмена администратором)
type TenderStatus string

const (
	// TenderStatusActive — тендер движется по шагам workflow.
	TenderStatusActive TenderStatus = "active"

	// TenderStatusCompleted — все шаги всех фаз пройдены.
	TenderStatusCompleted TenderStatus = "completed"

	// TenderStatusCancelled — тендер отменён.
	TenderStatusCancelled TenderStatus = "cancelled"
)

// IsTerminal возвращает true, если статус финальный (позиция заморожена).
func (s TenderStatus) IsTerminal() bool {
	switch s {
	case TenderStatusCompleted, TenderStatusCancelled:
		return true
	default:
		return false
	}
}

// Valid проверяет, что статус входит в перечисление.
func (s TenderStatus) Valid() bool {
	switch s {
	case TenderStatusActive, TenderStatusCompleted, TenderStatusCancelled:
		return true
	default:
		return false
	}
}

// HistoryAction — действие, зафиксированное в журнале шагов.
type HistoryAction string

const (
	// ActionCreated — тендер создан на шаге (1,1).
	ActionCreated HistoryAction = "created"

	// ActionApproved — шаг одобрен, тендер ушёл вперёд (или завершён).
	ActionApproved HistoryAction = "approved"

	// ActionRejected — шаг отклонён, тендер возвращён на доработку.
	ActionRejected HistoryAction = "rejected"

	// ActionPending — шаг ожидает исполнителя. Пишется внешними
	// клиентами журнала, движок переходов его не использует.
	ActionPending HistoryAction = "pending"

	// ActionCancelled — тендер отменён администратором.
	ActionCancelled HistoryAction = "cancelled"
)

// Valid проверяет, что действие входит в перечисление.
func (a HistoryAction) Valid() bool {
	switch a {
	case ActionCreated, ActionApproved, ActionRejected, ActionPending, ActionCancelled:
		return true
	default:
		return false
	}
}
