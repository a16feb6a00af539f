package chat

import "time"

// Session is the client-held state of one conversation with the assistant service.
// It starts anonymous and becomes authenticated once a login succeeds.
type Session struct {
	ID                 string    `json:"id"`
	AccessToken        string    `json:"-"`
	UserID             string    `json:"userId,omitempty"`
	AssistantSessionID string    `json:"assistantSessionId,omitempty"`
	OrganizationID     string    `json:"organizationId"`
	PhoneNumber        string    `json:"phoneNumber,omitempty"`
	Messages           []Message `json:"messages"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Authenticated reports whether the session holds an access token.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Clone returns a copy whose message slice is not shared with s.
func (s Session) Clone() Session {
	c := s
	c.Messages = append([]Message(nil), s.Messages...)
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	return c
}
