package models

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrMalformedMirror   = errors.New("local mirror is malformed")

	ErrUploadTimeout  = errors.New("upload timeout")
	ErrUploadFailed   = errors.New("upload failed")
	ErrInvalidLocator = errors.New("image locator does not belong to this store")
	ErrImageNotFound  = errors.New("image not found")
)
