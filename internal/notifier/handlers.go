package notifier

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/mq"
	"github.com/shaiso/Tenderflow/internal/telemetry"
)

// handleTransition обрабатывает tender.transitioned.
func (n *Notifier) handleTransition(ctx context.Context, delivery *mq.Delivery) error {
	event, err := mq.ParsePayload[domain.TransitionEvent](&delivery.Message)
	if err != nil {
		return fmt.Errorf("%w: parse transition payload: %v", mq.ErrPermanent, err)
	}

	notification := Notification{
		Kind:       transitionKind(event),
		TenderID:   event.TenderID,
		Reference:  event.Reference,
		Action:     event.Action,
		Position:   event.To,
		Deadline:   event.Deadline,
		OccurredAt: event.OccurredAt,
	}
	n.describeStep(ctx, &notification)
	notification.Recipient = n.recipient(ctx, event.NextActorID)

	return n.deliver(ctx, notification)
}

// handleOverdue обрабатывает tender.overdue.
func (n *Notifier) handleOverdue(ctx context.Context, delivery *mq.Delivery) error {
	event, err := mq.ParsePayload[domain.OverdueEvent](&delivery.Message)
	if err != nil {
		return fmt.Errorf("%w: parse overdue payload: %v", mq.ErrPermanent, err)
	}

	deadline := event.Deadline
	notification := Notification{
		Kind:       KindOverdue,
		TenderID:   event.TenderID,
		Reference:  event.Reference,
		Position:   event.Position,
		Deadline:   &deadline,
		OccurredAt: event.DetectedAt,
	}
	n.describeStep(ctx, &notification)
	notification.Recipient = n.recipient(ctx, event.ActorID)

	return n.deliver(ctx, notification)
}

// deliver отправляет уведомление и учитывает результат в метриках.
func (n *Notifier) deliver(ctx context.Context, notification Notification) error {
	if err := n.sender.Send(ctx, notification); err != nil {
		telemetry.NotificationsTotal.WithLabelValues(string(notification.Kind), "failed").Inc()
		return fmt.Errorf("send %s notification for %s: %w", notification.Kind, notification.Reference, err)
	}

	telemetry.NotificationsTotal.WithLabelValues(string(notification.Kind), "sent").Inc()
	telemetry.WithTenderID(telemetry.FromContext(ctx), notification.TenderID.String()).
		Debug("notification delivered", "kind", notification.Kind)
	return nil
}

// --- Helpers ---

// describeStep дополняет уведомление названием шага и ролью.
func (n *Notifier) describeStep(ctx context.Context, notification *Notification) {
	step, err := n.catalog.Step(notification.Position)
	if err != nil {
		telemetry.WithTenderID(telemetry.FromContext(ctx), notification.TenderID.String()).Warn("step not in catalog",
			"phase", notification.Position.Phase,
			"step", notification.Position.Step,
		)
		return
	}
	notification.StepTitle = step.Title
	notification.Role = step.ResponsibleRole
}

// recipient возвращает данные получателя. Ошибка справочника не мешает
// доставке: уведомление уходит с одним ID.
func (n *Notifier) recipient(ctx context.Context, id *uuid.UUID) *Recipient {
	if id == nil {
		return nil
	}

	r := &Recipient{ID: *id}
	if n.users == nil {
		return r
	}

	user, err := n.users.GetByID(ctx, *id)
	if err != nil {
		telemetry.FromContext(ctx).Warn("recipient lookup failed", "user_id", *id, "error", err)
		return r
	}
	r.Name = user.Name
	r.Email = user.Email
	r.Role = user.Role
	return r
}
