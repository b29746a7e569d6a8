package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPhotoCount          = errors.New("photo count out of range for variant")
	ErrDownloadFailed      = errors.New("media download failed")
	ErrNoFaceDetected      = errors.New("no analyzable face detected")
	ErrAIRefusal           = errors.New("model refused analysis")
	ErrDuplicateOperation  = errors.New("duplicate operation")
)
