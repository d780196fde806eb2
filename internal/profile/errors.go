package profile

import "errors"

var (
	ErrMissingFile      = errors.New("file field is required")
	ErrAvatarTooLarge   = errors.New("avatar exceeds size limit")
	ErrUnsupportedImage = errors.New("avatar must be an image")
)
