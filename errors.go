package mdf4

import "github.com/mdf4go/mdf4/internal/errs"

// Error kinds of §7. They are defined in internal/errs (so internal
// packages can construct them without importing this package) and aliased
// here so callers can use errors.As against the public names.
type (
	IOError                = errs.IOError
	FileIdentifierError     = errs.FileIdentifierError
	FileVersioningError     = errs.FileVersioningError
	InvalidBlockError       = errs.InvalidBlockError
	InvalidDataError        = errs.InvalidDataError
	UnsupportedFeatureError = errs.UnsupportedFeatureError
	ConversionError         = errs.ConversionError
	InvalidStateError       = errs.InvalidStateError
)
