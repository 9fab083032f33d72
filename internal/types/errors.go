package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrEmptyListing      = errors.New("listing contained no repositories")
	ErrMissingRepoLink   = errors.New("entry has no repository link")
	ErrNoCredential      = errors.New("no translation credential configured")
	ErrTranslateRequest  = errors.New("translation request failed")
	ErrTranslateStatus   = errors.New("translation endpoint returned non-success status")
	ErrTranslateDecode   = errors.New("translation reply is not a JSON string array")
	ErrLengthMismatch    = errors.New("translation reply length does not match input")
	ErrUnsupportedProxy  = errors.New("unsupported proxy scheme")
	ErrUnsupportedEngine = errors.New("unsupported engine")
)

// FetchError wraps errors that occur while fetching the listing page.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError describes a listing entry that could not be extracted.
type ParseError struct {
	Index    int
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for entry %d (selector=%q): %v", e.Index, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TranslateError wraps a whole-batch translation failure.
type TranslateError struct {
	StatusCode int
	Err        error
}

func (e *TranslateError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("translate error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("translate error: %v", e.Err)
}

func (e *TranslateError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while reading or writing persisted state.
type StorageError struct {
	Backend string
	Path    string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage error (%s, %s): %v", e.Backend, e.Path, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps a failure inside one stage of the record chain.
type PipelineError struct {
	Stage   string
	RepoURL string
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %s for %s: %v", e.Stage, e.RepoURL, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
