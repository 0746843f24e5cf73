package provider

import (
	"encoding/json"
	"fmt"
	"net/http"

	"example.com/trackersync/internal/domain"
)

// apiError mirrors the provider's error envelope.
type apiError struct {
	Errors []struct {
		ErrorType string `json:"errorType"`
		Message   string `json:"message"`
	} `json:"errors"`
}

// Provider errorType discriminants.
const (
	errTypeExpiredToken  = "expired_token"
	errTypeInvalidToken  = "invalid_token"
	errTypeInvalidGrant  = "invalid_grant"
	errTypeInvalidClient = "invalid_client"
	errTypeSystem        = "system"
)

// classify maps a provider HTTP response to the shared error taxonomy. The
// errorType discriminant takes precedence over the status code.
func classify(status int, body []byte) *domain.Error {
	var envelope apiError
	_ = json.Unmarshal(body, &envelope)

	errType := ""
	msg := fmt.Sprintf("provider returned status %d", status)
	if len(envelope.Errors) > 0 {
		errType = envelope.Errors[0].ErrorType
		if envelope.Errors[0].Message != "" {
			msg = envelope.Errors[0].Message
		}
	}

	switch errType {
	case errTypeExpiredToken:
		return domain.NewError(domain.KindAuthExpired, "%s", msg)
	case errTypeInvalidToken:
		return domain.NewError(domain.KindAuthInvalid, "%s", msg)
	case errTypeInvalidGrant:
		return domain.NewError(domain.KindAuthRevoked, "%s", msg)
	case errTypeInvalidClient:
		return domain.NewError(domain.KindClientMisconfigured, "%s", msg)
	case errTypeSystem:
		return domain.NewError(domain.KindRateLimited, "%s", msg)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewError(domain.KindRateLimited, "%s", msg)
	case status == http.StatusUnauthorized:
		return domain.NewError(domain.KindAuthInvalid, "%s", msg)
	default:
		return domain.NewError(domain.KindProviderUnavailable, "%s", msg)
	}
}
