package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// AppError attaches the file being processed to an underlying error.
type AppError struct {
	FileName string
	Message  string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("File %s: %s - %v", e.FileName, e.Message, e.Err)
	}
	return fmt.Sprintf("File %s: %s", e.FileName, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
