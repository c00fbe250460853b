// Package cli реализует инструмент командной строки Tenderflow.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Tenderflow API.
// Работает через HTTP и не импортирует internal/api. Исключение —
// проверка и выгрузка каталога шагов, которые выполняются локально
// через internal/catalog.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Подставляет X-Actor-ID во все запросы и
// Idempotency-Key в изменяющие, разбирает DataResponse, ListResponse
// и ErrorResponse.
//
//	client := cli.NewClient(cli.ClientConfig{BaseURL: "http://localhost:8080", ActorID: id})
//	tender, err := client.Approve(tenderID, cli.TransitionRequest{Comments: "ok"})
//
// ## Output
//
// Форматирование вывода:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr:
// tenderflow tender list --json | jq .
//
// ## Commands
//
//   - tender: list, create, show, approve, reject, cancel, timeline
//   - tasks: очередь актора (--actor) или роли (--role)
//   - user: list, create
//   - catalog: list, validate FILE, export
//
// Каждая группа создаётся фабричной функцией (NewTenderCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
