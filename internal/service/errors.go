package service

import "errors"

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotMember       = errors.New("user is not a member of this channel")
	// ErrForbidden is returned for edits that matched zero rows. It covers
	// both "message not found" and "not the author" without distinguishing
	// them, so non-authors cannot probe for message existence.
	ErrForbidden      = errors.New("operation not permitted")
	ErrEmptyMessage   = errors.New("message requires content or an attachment")
	ErrContentTooLong = errors.New("message content too long")
	ErrBadCursor      = errors.New("invalid history cursor")
)
