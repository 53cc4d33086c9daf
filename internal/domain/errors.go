package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserInactive        = errors.New("user is inactive")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")

	// ErrUnreadableDocument means no text could be extracted at all; it is the
	// only condition that fails a whole pipeline run.
	ErrUnreadableDocument = errors.New("document is unreadable")

	// ErrRecordNotReady is returned by the query engine when the target
	// invoice has not reached completed status.
	ErrRecordNotReady = errors.New("invoice extraction not completed")

	// ErrExtractionInProgress guards the at-most-one-writer invariant: a
	// record already in processing cannot be dispatched again.
	ErrExtractionInProgress = errors.New("extraction already in progress")
)
