package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidQuery    = 1003
	ErrCodeInvalidID       = 1004
	ErrCodeInvalidPath     = 1005
	ErrCodeInvalidRole     = 1006
	ErrCodeInvalidContent  = 1007
	ErrCodeMissingRequired = 1009

	// Domain state (2xxx)
	ErrCodeWorkspaceNotFound      = 2001
	ErrCodeVersionNotFound        = 2002
	ErrCodeFileNotFound           = 2003
	ErrCodeUserNotFound           = 2004
	ErrCodeMemberNotFound         = 2005
	ErrCodeVersionIDExists        = 2101
	ErrCodeConflict               = 2102
	ErrCodeConcurrentModification = 2103
	ErrCodeUsernameExists         = 2104

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003
	ErrCodeNotMember         = 3004
	ErrCodeReadOnlyMember    = 3005

	// Internal/system (4xxx)
	ErrCodeInternal           = 4001
	ErrCodeStoreFailure       = 4002
	ErrCodeStorageUnavailable = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeVersionNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodeRequestTooLarge
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 503:
		return ErrCodeStorageUnavailable
	default:
		return 0
	}
}
