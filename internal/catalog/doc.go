// Package catalog содержит каталог шагов workflow.
//
// Структура:
//   - catalog.go   — Catalog: валидация и чтение шагов
//   - reference.go — эталонный workflow (подготовка, исполнение, оплата)
//   - loader.go    — загрузка вариантов workflow из YAML
//   - errors.go    — ошибки валидации
//
// Каталог строится один раз при старте и передаётся в компоненты явно.
// Пропуск в нумерации фаз или шагов — фатальная ошибка загрузки.
package catalog
