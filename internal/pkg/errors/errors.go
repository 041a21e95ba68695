package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrTooMany  = errors.New("too many requests")

	// Pipeline taxonomy.
	ErrFetch       = errors.New("fetch failed")
	ErrExtraction  = errors.New("extraction failed")
	ErrScoring     = errors.New("scoring failed")
	ErrRateLimit   = errors.New("rate limited")
	ErrTransient   = errors.New("transient upstream error")
	ErrAuth        = errors.New("upstream auth rejected")
	ErrPersistence = errors.New("persistence failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Retryable reports whether a summarizer failure is worth another attempt.
// Auth failures are configuration problems and must not spin.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTransient)
}
