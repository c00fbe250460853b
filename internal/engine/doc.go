// Package engine вычисляет переходы тендера по каталогу шагов.
//
// Engine — чистая функция от (позиция, решение) к плану перехода:
//   - approve: следующий шаг фазы → первый шаг следующей фазы → завершение
//   - reject:  on_reject шага → предыдущий шаг фазы → последний шаг
//     предыдущей фазы → на (1,1) позиция не меняется
//
// Каждая вычисленная цель проверяется по каталогу. Применение плана,
// назначение исполнителя и запись журнала выполняет пакет workflow.
package engine
