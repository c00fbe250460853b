// Package scheduler реализует проверку просроченных шагов.
//
// Scheduler по cron-выражению находит активные тендеры, срок текущего
// шага которых истёк, и публикует tender.overdue для каждого.
// Уведомление по одному сроку отправляется один раз: переход на новый
// шаг сбрасывает отметку.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, Run)
//   - cron.go      — парсинг cron-выражений
//   - leader.go    — leader election через pg_try_advisory_lock
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Store:     tenderRepo,
//	    Publisher: publisher,
//	    Elector:   scheduler.NewAdvisoryLeader(pool, 0, logger),
//	    Logger:    logger,
//	})
//
//	// Блокируется до отмены ctx
//	err = sched.Run(ctx, "*/15 * * * *")
//
// Tick выполняется только лидером; остальные экземпляры пропускают тик.
package scheduler
