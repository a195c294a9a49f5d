package models

import "github.com/golang-jwt/jwt/v5"

// Claims are the JWT claims issued by the hosted authentication service
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
