package app

import "errors"

var (
	// ErrInvalidInput covers malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken is returned when registering with an email that
	// already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for login failures. It covers
	// both unknown email and wrong password so the two are not
	// distinguishable from outside.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	// ErrInvalidToken is returned for missing, malformed, expired or
	// tampered session tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrDocumentNotFound is returned when a document does not exist or
	// belongs to another user. The two cases are deliberately collapsed.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrProgressNotFound is returned when no study progress has been
	// recorded yet for a document.
	ErrProgressNotFound = errors.New("no progress recorded for this document")

	// ErrExtraction is returned when an uploaded file cannot be parsed
	// as a PDF or yields no usable text.
	ErrExtraction = errors.New("could not extract content from file")

	// ErrInvalidGenerated is returned when the generator produced
	// structurally invalid material, e.g. an answer index out of range.
	ErrInvalidGenerated = errors.New("generated content failed validation")
)
