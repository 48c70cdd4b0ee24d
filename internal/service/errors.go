package service

import "errors"

var (
	ErrInvalidInput      = errors.New("either text or a file must be provided")
	ErrInvalidFile       = errors.New("invalid file")
	ErrMalformedResponse = errors.New("malformed response from model")
	ErrInvalidChatType   = errors.New("invalid chat type")
	ErrEmptyHistory      = errors.New("history must contain at least one message")
)
