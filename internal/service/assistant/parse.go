package assistant

import (
	"strings"

	"github.com/tidwall/gjson"
)

// replyText extracts the assistant answer from a chat response body. A JSON object
// yields its "response" field, any other JSON value its string form, and a non-JSON
// body its trimmed text.
func replyText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	result := gjson.ParseBytes(body)
	switch {
	case result.IsObject():
		return result.Get("response").String()
	case result.Type == gjson.String:
		return result.String()
	default:
		return result.Raw
	}
}

// registerMessage picks the "msg" field out of a JSON object body.
func registerMessage(body []byte) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	result := gjson.ParseBytes(body)
	if !result.IsObject() {
		return "", false
	}
	msg := result.Get("msg")
	if !msg.Exists() {
		return "", false
	}
	return msg.String(), true
}

// errorMessage renders an error body: the "msg" field when present, else the raw text.
func errorMessage(body []byte) string {
	if msg, ok := registerMessage(body); ok {
		return msg
	}
	return strings.TrimSpace(string(body))
}

func parseLogin(body []byte) (LoginResult, error) {
	if !gjson.ValidBytes(body) {
		return LoginResult{}, ErrMalformedResponse
	}
	fields := gjson.GetManyBytes(body, "access_token", "user_id", "assistant_session_id", "phone_number")
	for _, required := range fields[:3] {
		if !required.Exists() || required.String() == "" {
			return LoginResult{}, ErrMalformedResponse
		}
	}
	return LoginResult{
		AccessToken:        fields[0].String(),
		UserID:             fields[1].String(),
		AssistantSessionID: fields[2].String(),
		PhoneNumber:        fields[3].String(),
	}, nil
}
