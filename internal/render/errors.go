package render

import "errors"

type userMessager interface {
	UserMessage() string
}

// UserMessage prefers the actionable message of typed errors (capture
// failures, backend details) over the wrapped error chain.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
