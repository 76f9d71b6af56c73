package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/personal-ledger/internal/application/dispatcher"
	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/domain/event"
)

// NotificationService turns lifecycle events into user notifications.
// Delivery failures are logged and audited, never returned.
type NotificationService interface {
	// NotifyAdmins tells every approver that a request awaits a decision
	NotifyAdmins(ctx context.Context, evt *event.Event) error

	// NotifyOwner tells the owner that their request was approved or rejected
	NotifyOwner(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	notifier  port.Notifier
	approvers port.ApproverDirectory
	audit     AuditRecorder
	linkBase  string
	logger    Logger
}

// NewNotificationService creates a new NotificationService. linkBase is
// prefixed to request paths in notification links.
func NewNotificationService(
	notifier port.Notifier,
	approvers port.ApproverDirectory,
	audit AuditRecorder,
	linkBase string,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifier:  notifier,
		approvers: approvers,
		audit:     audit,
		linkBase:  strings.TrimSuffix(linkBase, "/"),
		logger:    logger,
	}
}

// RegisterNotificationHandlers subscribes svc to the events that notify users
func RegisterNotificationHandlers(d dispatcher.Dispatcher, svc NotificationService) {
	d.SubscribeNamed(event.TypeRequestSubmitted, "notify-admins", svc.NotifyAdmins)
	d.SubscribeNamed(event.TypeRequestApproved, "notify-owner", svc.NotifyOwner)
	d.SubscribeNamed(event.TypeRequestRejected, "notify-owner", svc.NotifyOwner)
}

func (s *notificationServiceImpl) NotifyAdmins(ctx context.Context, evt *event.Event) error {
	admins, err := s.approvers.ListApprovers(ctx)
	if err != nil {
		s.logger.Error("Failed to list approvers", "error", err, "request_id", evt.RequestID)
		return nil
	}

	title := evt.GetPayloadString(event.KeyTitle)
	message := fmt.Sprintf("Request #%d \"%s\" from %s is waiting for your decision.",
		evt.RequestID, title, evt.GetPayloadString(event.KeyOwnerID))
	link := s.requestLink(evt.RequestID)

	delivered := 0
	for _, admin := range admins {
		sendErr := s.notifier.Notify(ctx, admin, message, link)
		meta := map[string]interface{}{
			"recipient":      admin,
			"delivered":      sendErr == nil,
			"event_id":       evt.ID,
			"correlation_id": evt.CorrelationID,
		}
		if sendErr != nil {
			meta["error"] = sendErr.Error()
			s.logger.Error("Failed to notify approver", "error", sendErr, "request_id", evt.RequestID, "admin_id", admin)
		} else {
			delivered++
		}
		s.audit.Record(ctx, entity.EntityApprovalRequest, strconv.FormatInt(evt.RequestID, 10),
			entity.ActionNotifyAdmin, actorRef(evt.ActorID), meta)
	}

	s.logger.Info("Approvers notified", "request_id", evt.RequestID, "delivered", delivered, "total", len(admins))
	return nil
}

func (s *notificationServiceImpl) NotifyOwner(ctx context.Context, evt *event.Event) error {
	owner := evt.GetPayloadString(event.KeyOwnerID)
	if owner == "" {
		s.logger.Error("Event carries no owner", "event_id", evt.ID, "request_id", evt.RequestID)
		return nil
	}

	title := evt.GetPayloadString(event.KeyTitle)
	var message string
	switch evt.Type {
	case event.TypeRequestApproved:
		message = fmt.Sprintf("Your request #%d \"%s\" was approved for %s.",
			evt.RequestID, title, evt.GetPayloadString(event.KeyApprovedAmount))
	case event.TypeRequestRejected:
		message = fmt.Sprintf("Your request #%d \"%s\" was rejected.", evt.RequestID, title)
		if comment := evt.GetPayloadString(event.KeyComment); comment != "" {
			message += " Comment: " + comment
		}
	default:
		return nil
	}

	sendErr := s.notifier.Notify(ctx, owner, message, s.requestLink(evt.RequestID))
	meta := map[string]interface{}{
		"recipient":      owner,
		"outcome":        evt.GetPayloadString(event.KeyStatus),
		"delivered":      sendErr == nil,
		"event_id":       evt.ID,
		"correlation_id": evt.CorrelationID,
	}
	if amount, ok := evt.GetPayloadDecimal(event.KeyApprovedAmount); ok {
		meta[event.KeyApprovedAmount] = amount.String()
	}
	if sendErr != nil {
		meta["error"] = sendErr.Error()
		s.logger.Error("Failed to notify owner", "error", sendErr, "request_id", evt.RequestID, "owner_id", owner)
	}
	s.audit.Record(ctx, entity.EntityApprovalRequest, strconv.FormatInt(evt.RequestID, 10),
		entity.ActionNotifyOwner, actorRef(evt.ActorID), meta)
	return nil
}

func (s *notificationServiceImpl) requestLink(requestID int64) string {
	return fmt.Sprintf("%s/requests/%d", s.linkBase, requestID)
}
