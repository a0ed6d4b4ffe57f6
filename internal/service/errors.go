package service

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrItemNotFound    = errors.New("wish item not found")
	ErrForbidden       = errors.New("only the owner may change this item")
	ErrInvalidItem     = errors.New("invalid wish item")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrUploadsDisabled = errors.New("uploads are not available")
)
