// Package actor выбирает исполнителя шага по роли.
//
// Стратегии:
//   - first_match  — первый активный пользователь роли по (created_at, id)
//   - round_robin  — по кругу среди активных пользователей роли
//   - least_loaded — пользователь с наименьшим числом активных тендеров
//
// Отсутствие подходящего пользователя не ошибка: Resolve возвращает nil.
package actor
