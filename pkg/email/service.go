package email

import "context"

// Notifier is what the HTTP layer and the scheduler send through.
type Notifier interface {
	SendQuoteReceived(ctx context.Context, to string, data QuoteReceivedData) error
	SendFollowupsQueued(ctx context.Context, to string, data FollowupsQueuedData) error
}

var GlobalEmailService *EmailService

// InitEmailService leaves GlobalEmailService nil when no key is configured.
func InitEmailService(apiKey, from string) error {
	if apiKey == "" {
		return nil
	}
	service, err := NewEmailService(apiKey, from)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}
