// Package auth issues and validates the bearer tokens that guard the HTTP API.
package auth

import (
	"context"
	"slices"
	"time"
)

// AllOrgs in a token's org list grants access to every organization.
const AllOrgs = "*"

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed token for subject, scoped to orgs.
	GenerateToken(ctx context.Context, subject string, orgs []string) (string, error)

	// ValidateToken validates the provided token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken when
	// validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for the JWT tokens.
type Claims struct {
	// Subject names the caller, usually a service or operator.
	Subject string `json:"sub,omitempty"`

	// Orgs lists the organizations the caller may act on.
	Orgs []string `json:"orgs,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// AllowsOrg reports whether the claims grant access to orgID.
func (c *Claims) AllowsOrg(orgID string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Orgs, AllOrgs) || slices.Contains(c.Orgs, orgID)
}
