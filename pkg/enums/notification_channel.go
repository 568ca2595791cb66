package enums

import "fmt"

// NotificationChannel identifies the transport a notification goes out on.
type NotificationChannel string

const (
	NotificationChannelInApp    NotificationChannel = "in_app"
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
)

var validNotificationChannels = []NotificationChannel{
	NotificationChannelInApp,
	NotificationChannelEmail,
	NotificationChannelWhatsApp,
}

// IsValid reports whether the value matches the canonical channel enum.
func (c NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseNotificationChannel converts raw input into NotificationChannel.
func ParseNotificationChannel(value string) (NotificationChannel, error) {
	for _, candidate := range validNotificationChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification channel %q", value)
}
