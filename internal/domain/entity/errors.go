package entity

import (
	"errors"

	"github.com/diarist/server/internal/domain/valueobject"
)

var (
	// Message errors
	ErrInvalidMessageID      = errors.New("invalid message id")
	ErrInvalidConversationID = errors.New("invalid conversation id")
	ErrInvalidRole           = errors.New("invalid message role")
	ErrInvalidSeq            = errors.New("invalid seq")
	ErrEmptyContent          = errors.New("empty message content")
	ErrStoreWriteFailure     = errors.New("message store write failed")
	ErrSequenceConflict      = errors.New("seq already used in conversation")
	ErrMalformedEditProposal = valueobject.ErrMalformedEditProposal

	// Identity errors
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidUserID = errors.New("invalid user id")

	// Journal errors
	ErrInvalidJournalID = errors.New("invalid journal id")

	// GitHub errors
	ErrGitHubNotLinked = errors.New("github account not linked")
)
