// Package workflow применяет переходы тендеров по каталогу шагов.
//
// Service — единственный код, изменяющий тендеры. Каждый переход
// выполняется в одной транзакции:
//  1. тендер читается с блокировкой строки
//  2. engine вычисляет целевой шаг
//  3. actor.Resolver назначает исполнителя целевой роли
//  4. в журнал добавляется запись, тендер сохраняется с проверкой версии
//
// После коммита публикуется TransitionEvent. Ошибка публикации
// логируется и не откатывает переход.
//
// Запросы очередей задач (TasksForActor, TasksForRole) и ленты
// тендера (Timeline) находятся в queries.go.
package workflow
