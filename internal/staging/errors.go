package staging

import "errors"

// Validation errors abort the offending file only; siblings in a batch
// continue.
var (
	ErrFileTooLarge = errors.New("file exceeds the maximum staged size")
	ErrGalleryFull  = errors.New("gallery has reached its image cap")
)

func IsValidationError(err error) bool {
	return errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrGalleryFull)
}
