package notifier

import "errors"

// Ошибки доставки уведомлений.
var (
	// ErrWebhook — webhook ответил ошибкой или недоступен.
	ErrWebhook = errors.New("webhook delivery failed")

	// ErrRetryExhausted — все попытки доставки исчерпаны.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)
