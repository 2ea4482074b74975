package utils

import (
	"time"
)

// Token time constants
const (
	// AdminTokenTTL is the time-to-live for admin access tokens (12 hours)
	AdminTokenTTL = 12 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
