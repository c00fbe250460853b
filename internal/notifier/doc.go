// Package notifier доставляет уведомления о событиях тендеров.
//
// Notifier потребляет очереди notifier.transitions и notifier.overdue,
// дополняет события названием шага и данными получателя и передаёт
// их Sender:
//   - WebhookSender — HTTP POST с JSON телом и повторами
//   - LogSender     — только запись в лог (webhook не настроен)
//
// Ошибку, которую повторять бесполезно, Sender помечает mq.ErrPermanent:
// такое сообщение сразу уходит в dlq.notifications.
package notifier
