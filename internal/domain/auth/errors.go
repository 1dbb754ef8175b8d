package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrInvalidRole           = errors.New("invalid role")
	ErrOwnerAccessRequired   = errors.New("owner access required")
	ErrManagerAccessRequired = errors.New("manager or owner access required")
)
