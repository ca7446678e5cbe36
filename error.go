package kvstream

import (
	"github.com/pkg/errors"

	"github.com/dacapoday/kvstream/keyrange"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrTransactionInactive = errors.New("transaction inactive")
	ErrTransactionAborted  = errors.New("transaction aborted")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrNotFound            = errors.New("not found")
	ErrExists              = errors.New("already exists")
	ErrClosed              = errors.New("closed")
	ErrInvalidRange        = keyrange.ErrInvalidRange
)
