package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/slack-go/slack"
)

// Error classes for poll and fetch failures. Authentication failures are
// surfaced to the user, transient failures retry silently, malformed
// responses degrade to an empty batch.
const (
	ErrClassAuth      = "auth"
	ErrClassTransient = "transient"
	ErrClassMalformed = "malformed"
)

// authErrs are the Slack API error strings that mean the credentials
// were rejected.
var authErrs = map[string]bool{
	"invalid_auth":     true,
	"not_authed":       true,
	"account_inactive": true,
	"token_revoked":    true,
	"token_expired":    true,
	"missing_scope":    true,
}

// Classify maps an API error to one of the error classes. Unknown errors
// classify as transient so polling keeps retrying rather than giving up
// on something recoverable.
func Classify(err error) string {
	if err == nil {
		return ErrClassTransient
	}

	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		if authErrs[slackErr.Err] {
			return ErrClassAuth
		}
		return ErrClassTransient
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ErrClassMalformed
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return ErrClassTransient
	}

	return ErrClassTransient
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return Classify(err) == ErrClassAuth
}
