package domain

import "errors"

// Construction errors.
var (
	ErrInvalidAgent   = errors.New("trade endpoint outside agent range")
	ErrSelfLoop       = errors.New("trade seller and buyer are the same agent")
	ErrTooManyTrades  = errors.New("trade id exceeds bundle capacity")
	ErrDemandCount    = errors.New("demand function count does not match agent count")
	ErrDomainMismatch = errors.New("valuation domain does not match incident trades")
	ErrUnknownKind    = errors.New("unknown valuation kind")
	ErrInvalidParams  = errors.New("invalid valuation parameters")
	ErrMissingOffer   = errors.New("missing offer for incident trade")
)

// Runtime errors.
var (
	// ErrForeignTrade is returned when a bundle or price map refers to a
	// trade the agent is not party to.
	ErrForeignTrade = errors.New("bundle contains trade foreign to agent")

	// ErrCapacity is returned instead of attempting an exhaustive
	// maximisation that exceeds the enumeration bound.
	ErrCapacity = errors.New("enumeration capacity exceeded")
)
