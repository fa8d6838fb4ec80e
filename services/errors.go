package services

import (
	"errors"
	"fmt"
	"strings"

	"challenges/repository"
)

var (
	ErrNotFound     = errors.New("post not found")
	ErrUpload       = errors.New("image upload failed")
	ErrPersistence  = errors.New("store operation failed")
	ErrNotification = errors.New("notification failed")
)

// ValidationError lists the input fields that were missing or empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

func storeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
