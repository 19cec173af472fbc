package models

// Contact is an entry in a user's emergency contact book.
type Contact struct {
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Relationship   string `json:"relationship,omitempty"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty"`
}

// Preferences holds the user's own notification channel switches.
type Preferences struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

// DefaultPreferences enables every channel.
func DefaultPreferences() Preferences {
	return Preferences{Email: true, SMS: true, Push: true}
}

// User is owned by the account service; this service only reads it.
type User struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	Phone             string      `json:"phone,omitempty"`
	PushToken         string      `json:"-"`
	EmergencyContacts []Contact   `json:"emergency_contacts"`
	Preferences       Preferences `json:"preferences"`
}

// SnapshotContacts copies the contact book into a fresh alert snapshot.
func (u User) SnapshotContacts() []EmergencyContact {
	out := make([]EmergencyContact, 0, len(u.EmergencyContacts))
	for _, c := range u.EmergencyContacts {
		out = append(out, EmergencyContact{
			Name:           c.Name,
			Phone:          c.Phone,
			Email:          c.Email,
			TelegramChatID: c.TelegramChatID,
		})
	}
	return out
}
