package core

import "errors"

// Sentinel errors shared across the service and HTTP layers. The HTTP layer
// maps these to status codes; services wrap them with context via fmt.Errorf.
var (
	ErrNotFound         = errors.New("not found")
	ErrInUse            = errors.New("referenced by existing postings")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidKind      = errors.New("invalid posting kind")
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrTaxNotAllowed    = errors.New("tax amount not allowed for this posting kind")
	ErrTaxExceedsAmount = errors.New("tax amount exceeds posting amount")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
	ErrInvalidISIN      = errors.New("invalid ISIN (must be 12 characters)")
	ErrMissingAccount   = errors.New("posting requires an account")
	ErrMissingSecurity  = errors.New("posting kind requires a security")
	ErrNoteTooLong      = errors.New("note too long (max 500 characters)")
	ErrInvalidInterval  = errors.New("invalid interval")
	ErrInvalidRule      = errors.New("invalid budget rule")
	ErrBudgetUnscoped   = errors.New("budget needs a category or a posting kind")
	ErrInvalidOwnerKind = errors.New("invalid attachment owner kind")
	ErrInvalidBasis     = errors.New("invalid date basis")
	ErrInvalidBucket    = errors.New("invalid report bucket")
	ErrInvalidCompare   = errors.New("invalid comparison mode")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrDuplicatePosting = errors.New("posting already imported")
)
