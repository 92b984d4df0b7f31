package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrRoleNotFound       = errors.New("role not found")
	ErrRoleNotAllowed     = errors.New("role cannot be chosen at registration")
	ErrPlaceNotFound      = errors.New("place not found")
	ErrInvalidInput       = errors.New("invalid input")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
