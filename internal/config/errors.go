package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	// Staging errors
	ErrStageFileFmt   = "Failed to stage file: %v"
	ErrUnstageSlotFmt = "Failed to unstage slot: %v"

	// Commit errors
	ErrCommitPrefixFmt = "Failed to commit staged images: %v"

	// Config errors
	ErrWriteConfigContentFmt = "Failed to write config content: %v"

	// Generic HTTP errors
	ErrInternalServerError = "Internal server error"
	ErrBadRequest          = "Bad request"
)
