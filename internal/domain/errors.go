package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a tenant or record does not exist
	ErrNotFound = errors.New("not found")

	// ErrVerificationFailed is returned when a webhook signature does not match
	ErrVerificationFailed = errors.New("webhook verification failed")

	// ErrUpstreamUnauthorized is returned when the platform rejects the tenant's credentials
	ErrUpstreamUnauthorized = errors.New("upstream rejected credentials")

	// ErrUpstreamNotFound is returned when the platform has no such resource
	ErrUpstreamNotFound = errors.New("upstream resource not found")

	// ErrInvalidPayload is returned when an upstream payload cannot be normalized
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrAlreadyExists is returned when a unique key such as the shop domain is taken
	ErrAlreadyExists = errors.New("already exists")
)

// IncompleteCredentialsError lists the credential fields a caller needed but the tenant lacks
type IncompleteCredentialsError struct {
	TenantID string
	Missing  []CredentialField
}

func (e *IncompleteCredentialsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("incomplete credentials for tenant %s: missing %s", e.TenantID, strings.Join(names, ", "))
}

// RateLimitError is returned when the platform throttles a request
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream rate limited, retry after %ds", e.RetryAfter)
}

// UpstreamError is any other non-success upstream response
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream error: status %d", e.Status)
	}
	return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Message)
}
