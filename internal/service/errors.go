package service

import "errors"

var (
	ErrValidation         = errors.New("validation")          // 400
	ErrInvalidCredentials = errors.New("invalid credentials") // 401
	ErrUserExists         = errors.New("user already exists") // 409
	ErrNotFound           = errors.New("not found")           // 404
	ErrAdminUndeletable   = errors.New("cannot delete admin user")
)
