// Package businessflow contains the business logic for the Synergy ID allocator.
package businessflow

import (
	"strings"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information carried into audit events
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// normalizePrefix trims and validates an allocation namespace. Prefixes are
// short category codes; a dash would make the code format ambiguous.
func normalizePrefix(prefix string) (string, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return "", ErrPrefixRequired
	}
	if len(p) > 32 {
		return "", ErrPrefixTooLong
	}
	if strings.ContainsAny(p, "- \t\n") {
		return "", ErrPrefixInvalid
	}
	return p, nil
}
