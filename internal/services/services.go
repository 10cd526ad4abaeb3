package services

import (
	"context"
	"log"

	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
)

// Publisher delivers board events to real-time listeners.
type Publisher interface {
	Publish(boardID, eventType string, data interface{})
	// Disconnect drops the listeners of the given users, or of everyone on
	// the board when no user is given.
	Disconnect(boardID string, userIDs ...string)
}

// Notification is a push message for a single device.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier sends push notifications.
type Notifier interface {
	Send(ctx context.Context, deviceToken string, n Notification) error
}

// FederatedIdentity is the verified profile behind an external ID token.
type FederatedIdentity struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
}

// IdentityVerifier checks ID tokens issued by an external auth provider.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FederatedIdentity, error)
}

type NopPublisher struct{}

func (NopPublisher) Publish(string, string, interface{}) {}

func (NopPublisher) Disconnect(string, ...string) {}

type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string, Notification) error { return nil }

// DefaultPoints returns the reward and penalty used when a task does not set its own.
func DefaultPoints(p models.Priority) (reward, penalty int64) {
	switch p {
	case models.PriorityHigh:
		return constants.DefaultRewardHigh, constants.DefaultPenaltyHigh
	case models.PriorityLow:
		return constants.DefaultRewardLow, constants.DefaultPenaltyLow
	default:
		return constants.DefaultRewardMedium, constants.DefaultPenaltyMedium
	}
}

// notifyUser sends n to the user's device unless they opted out or never
// registered one. Failures are logged; a notification never fails a request.
func notifyUser(ctx context.Context, users repository.UserRepository, notifier Notifier, userID string, n Notification) {
	if notifier == nil {
		return
	}

	user, err := users.FindByID(userID)
	if err != nil {
		log.Printf("Skipping notification for %s: %v", userID, err)
		return
	}
	if !user.NotificationsEnabled || user.DeviceToken == "" {
		return
	}

	if err := notifier.Send(ctx, user.DeviceToken, n); err != nil {
		log.Printf("Failed to notify user %s: %v", userID, err)
	}
}

// uniqueStrings removes duplicate and empty values, keeping first occurrences.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
