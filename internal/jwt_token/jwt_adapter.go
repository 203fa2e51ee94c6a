package jwttoken

import (
	"asamblea/internal/platform/middleware"
)

func ToMiddlewareClaims(claims *Claims) *middleware.SessionClaims {
	return &middleware.SessionClaims{
		SessionID:  claims.SessionID,
		AssemblyID: claims.AssemblyID,
	}
}

// JWTServiceAdapter satisfies middleware.TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.SessionClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
