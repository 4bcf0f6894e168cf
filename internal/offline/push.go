package offline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	applog "gestorebinder/internal/log"
)

// Fixed presentation of push notifications.
const (
	NotificationTitle = "GestoreBinder"
	NotificationIcon  = "/icon-192x192.svg"
	NotificationBadge = "/badge.svg"
	RootURL           = "/"
)

// PushNotification is what a push message is turned into.
type PushNotification struct {
	ID    string
	Title string
	Body  string
	Icon  string
	Badge string
}

// Display shows and dismisses notifications. Show returns once the
// notification is visible.
type Display interface {
	Show(ctx context.Context, n PushNotification) error
	Dismiss(ctx context.Context, id string) error
}

// Opener focuses or opens an application URL.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// PushHandler turns push payloads into notifications.
type PushHandler struct {
	display Display
	opener  Opener
	logger  *applog.Logger
}

func NewPushHandler(display Display, opener Opener, logger *applog.Logger) *PushHandler {
	if logger == nil {
		logger = applog.Discard()
	}
	return &PushHandler{display: display, opener: opener, logger: logger.WithComponent(applog.ComponentOffline)}
}

// HandlePush shows a notification whose body is the payload text. It does
// not return before the display has shown it.
func (h *PushHandler) HandlePush(ctx context.Context, payload []byte) (PushNotification, error) {
	n := PushNotification{
		ID:    uuid.NewString(),
		Title: NotificationTitle,
		Body:  string(payload),
		Icon:  NotificationIcon,
		Badge: NotificationBadge,
	}
	if err := h.display.Show(ctx, n); err != nil {
		return n, fmt.Errorf("show notification: %w", err)
	}
	h.logger.Debug("Push notification shown", applog.FieldOperation, applog.OpPush, "notification_id", n.ID)
	return n, nil
}

// HandleClick dismisses n and opens the application root.
func (h *PushHandler) HandleClick(ctx context.Context, n PushNotification) error {
	if err := h.display.Dismiss(ctx, n.ID); err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	if err := h.opener.Open(ctx, RootURL); err != nil {
		return fmt.Errorf("open %s: %w", RootURL, err)
	}
	return nil
}
