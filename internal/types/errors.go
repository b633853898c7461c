package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrNoPages       = errors.New("no pages to process")
	ErrUnknownLabel  = errors.New("label not in active vocabulary")
)

// FetchError wraps errors that occur during fetching. A non-2xx status is
// reported with StatusCode set and Err describing the status.
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

// PhraseNotFoundError is returned when a marker phrase is missing from the
// flattened page text. Which is "start" or "end".
type PhraseNotFoundError struct {
	Phrase string
	Which  string
}

func (e *PhraseNotFoundError) Error() string {
	return fmt.Sprintf("%s phrase %q not found", e.Which, e.Phrase)
}

// ConfigurationError reports an unusable combination of settings, such as
// a page URL with no language segment or an unknown site type.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error (%s=%q): %s", e.Field, e.Value, e.Reason)
}

// InvalidInputError reports operator input that cannot be used. It aborts
// the whole run.
type InvalidInputError struct {
	Prompt string
	Input  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for %s (%q): %s", e.Prompt, e.Input, e.Reason)
}

// ParseError wraps errors that occur while decoding CSV rows or model output.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in an entity rule chain.
type PipelineError struct {
	Stage  string
	Entity *RawEntity
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// RenderError wraps a failure to produce one visual artifact.
type RenderError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s (%s): %v", e.Artifact, e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
