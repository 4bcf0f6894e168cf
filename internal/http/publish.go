package http

import (
	"context"
	"time"

	"gestorebinder/internal/amqp"
	"gestorebinder/internal/datasync"
	applog "gestorebinder/internal/log"
)

const publishTimeout = 3 * time.Second

// notify publishes the success text of a mutation as a push message.
// Publishing is best effort: a broker failure never fails the request.
func (s *Server) notify(ctx context.Context, userID int64, kind datasync.MutationKind) {
	if s.publisher == nil {
		return
	}
	n := datasync.SuccessNotification(kind)
	msg := amqp.NewPushMessage(userID, kind.String(), n.Description)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, msg); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Push publish failed",
			applog.FieldMutation, kind.String(), applog.FieldError, err)
	}
}
