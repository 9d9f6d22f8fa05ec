package moderation

import (
	"errors"

	"github.com/extmarket/modgate/moderation/store"
)

var (
	// ErrNotFound reports a missing subject or moderation record.
	ErrNotFound = store.ErrNotFound

	// ErrValidation reports a malformed decision request, such as a
	// rejection without a reason.
	ErrValidation = errors.New("invalid moderation request")

	// ErrAlreadyDecided reports a repeat approve/reject on a record whose
	// cycle already closed. Re-opening requires SetPending or a fresh edit.
	ErrAlreadyDecided = errors.New("moderation record already decided")
)
