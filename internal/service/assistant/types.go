package assistant

// RegisterRequest is the payload of POST /register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Channel     string `json:"channel"`
}

// RegisterResult carries the confirmation text returned by the service, if any.
type RegisterResult struct {
	Msg string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult holds the credentials and conversation handle issued on login.
type LoginResult struct {
	AccessToken        string
	UserID             string
	AssistantSessionID string
	PhoneNumber        string
}

// ChatScope addresses one server-side conversation on behalf of a user.
type ChatScope struct {
	OrganizationID     string
	UserID             string
	AssistantSessionID string
	AccessToken        string
}

// ChatRequest is a user query sent within a ChatScope.
type ChatRequest struct {
	ChatScope
	Query       string
	PhoneNumber string
}

// Reply is the assistant's answer to a ChatRequest.
type Reply struct {
	Response string
}
