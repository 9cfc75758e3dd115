package email

import (
	"context"
)

// Service sends transactional newsletter emails. Implementations render a
// per-language template and deliver over SMTP.
type Service interface {
	SendConfirmation(ctx context.Context, to, language, confirmURL string) error
	SendWelcome(ctx context.Context, to, language, unsubURL string) error
	SendGoodbye(ctx context.Context, to, language string) error
}
