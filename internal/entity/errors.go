package entity

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrArchived          = errors.New("record is archived")
)
