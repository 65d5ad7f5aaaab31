/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity or a registered class cannot be found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyRegistered is returned when a class is registered twice on the same source
	ErrAlreadyRegistered = errors.New("class already registered")

	// ErrNotRegistered is returned when a source has no manager for the requested class
	ErrNotRegistered = errors.New("class not registered")

	// ErrNoDriver is returned when a manager is used before a driver was assigned
	ErrNoDriver = errors.New("no driver assigned")

	// ErrBackend is returned when a driver could not complete an operation
	ErrBackend = errors.New("backend failure")

	// ErrMalformedStorage is returned when persisted data cannot be parsed
	ErrMalformedStorage = errors.New("malformed storage")

	// ErrConfiguration is returned when a backend cannot initialize
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %d not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotRegisteredError is returned by source dispatch for an unknown class
type NotRegisteredError struct {
	Type string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("class %s is not registered", e.Type)
}

func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}

// AlreadyRegisteredError is returned when registering a class a second time
type AlreadyRegisteredError struct {
	Type string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("class %s is already registered", e.Type)
}

func (e *AlreadyRegisteredError) Is(target error) bool {
	return target == ErrAlreadyRegistered
}

// BackendError wraps a driver failure with the operation and class it happened on
type BackendError struct {
	Op    string
	Class string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Class, e.Err)
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// MalformedStorageError represents persisted data that could not be parsed
type MalformedStorageError struct {
	Path string
	Err  error
}

func (e *MalformedStorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed storage %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("malformed storage: %v", e.Err)
}

func (e *MalformedStorageError) Is(target error) bool {
	return target == ErrMalformedStorage
}

func (e *MalformedStorageError) Unwrap() error {
	return e.Err
}

// ConfigurationError represents a backend that cannot be initialized
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Field != "" {
		return fmt.Sprintf("configuration error for %q: %s", e.Field, msg)
	}
	return fmt.Sprintf("configuration error: %s", msg)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType string, key int64) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewNotRegisteredError creates a new NotRegisteredError
func NewNotRegisteredError(entityType string) error {
	return &NotRegisteredError{Type: entityType}
}

// NewAlreadyRegisteredError creates a new AlreadyRegisteredError
func NewAlreadyRegisteredError(entityType string) error {
	return &AlreadyRegisteredError{Type: entityType}
}

// NewBackendError wraps err as a backend failure. MalformedStorage and
// existing backend errors are returned unchanged.
func NewBackendError(op, class string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrMalformedStorage) || errors.Is(err, ErrBackend) {
		return err
	}
	return &BackendError{Op: op, Class: class, Err: err}
}

// NewMalformedStorageError creates a new MalformedStorageError
func NewMalformedStorageError(path string, err error) error {
	return &MalformedStorageError{Path: path, Err: err}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(field, message string, err error) error {
	return &ConfigurationError{Field: field, Message: message, Err: err}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotRegistered checks if an error reports an unknown class
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

// IsAlreadyRegistered checks if an error reports a duplicate class registration
func IsAlreadyRegistered(err error) bool {
	return errors.Is(err, ErrAlreadyRegistered)
}

// IsBackendFailure checks if an error is a backend failure
func IsBackendFailure(err error) bool {
	return errors.Is(err, ErrBackend)
}

// IsMalformedStorage checks if an error is a malformed storage error
func IsMalformedStorage(err error) bool {
	return errors.Is(err, ErrMalformedStorage)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
