package handlers

import "errors"

var (
	// common error code
	ErrInternalServer = errors.New("INTERNAL_SERVER_ERROR")
	ErrInvalidRequest = errors.New("VALIDATION_FAILED")
	ErrInvalidJson    = errors.New("INVALID_JSON_FORMAT")
	ErrMissingParam   = errors.New("MISSING_PARAM")
	ErrUnavailable    = errors.New("SERVICE_UNAVAILABLE")

	// auth error code
	ErrAuthFailed   = errors.New("AUTH_FAILED")
	ErrMissingToken = errors.New("MISSING_TOKEN")
	ErrToken        = errors.New("TOKEN_ERROR")
	ErrForbidden    = errors.New("FORBIDDEN")

	// lookup error code
	ErrItemNotFound = errors.New("ITEM_NOT_FOUND")
	ErrBidNotFound  = errors.New("BID_NOT_FOUND")

	// file error code
	ErrInvalidForm  = errors.New("INVALID_FORM")
	ErrMissingFiles = errors.New("MISSING_FILES")
	ErrLargeFile    = errors.New("FILE_TO_LARGE")
	ErrInvalidFile  = errors.New("INVALID_FILE_TYPE")
	ErrUploadFailed = errors.New("UPLOAD_FAILED")
)
