package storage

import "errors"

var (
	ErrPreferenceNotFound = errors.New("preference not found")
	ErrInvalidKey         = errors.New("invalid preference key")
	ErrStorageInit        = errors.New("storage initialization failed")
	ErrStoreClosed        = errors.New("storage is closed")
)
