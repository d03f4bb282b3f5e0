package user

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

// ResetNotifier delivers a password reset link to the account holder.
type ResetNotifier interface {
	SendReset(ctx context.Context, u *User, link string) error
}

// LogResetNotifier writes reset links to the log instead of sending mail.
type LogResetNotifier struct {
	log *logger.Logger
}

func NewLogResetNotifier(log *logger.Logger) *LogResetNotifier {
	return &LogResetNotifier{log: log}
}

func (n *LogResetNotifier) SendReset(ctx context.Context, u *User, link string) error {
	n.log.WithContext(ctx).
		WithField("email", u.Email).
		WithField("link", link).
		Info("password reset requested")
	return nil
}

func resetLink(base, token string) string {
	return fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(base, "/"), url.PathEscape(token))
}
