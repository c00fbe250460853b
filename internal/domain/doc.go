// Package domain содержит доменные модели Tenderflow.
//
// Модели:
//   - Tender           — тендер и его текущая позиция в workflow
//   - StepDefinition   — описание шага каталога (фаза, номер, роль, сроки)
//   - StepHistoryEntry — неизменяемая запись журнала шагов
//   - User             — участник workflow с ролью
//
// Пакет не зависит от хранилища и транспорта.
package domain
