package otc

// Kind classifies every rejection the engine can produce. Operations fail
// atomically: a returned error means no state changed and no funds moved.
type Kind int

const (
	KindNotFound Kind = iota
	KindUnauthorized
	KindInvalidState
	KindConstraint
	KindTiming
	KindPolicy
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindConstraint:
		return "constraint_violation"
	case KindTiming:
		return "timing_violation"
	case KindPolicy:
		return "policy_violation"
	}
	return "unknown"
}

// Error is a classified engine rejection.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrProfileNotFound = &Error{KindNotFound, "profile does not exist"}
	ErrProfileExists   = &Error{KindConstraint, "profile already exists"}

	ErrAssetNotFound = &Error{KindNotFound, "asset is not registered"}
	ErrAssetExists   = &Error{KindConstraint, "asset already registered"}
	ErrAssetMismatch = &Error{KindConstraint, "asset codes and handles must have equal length"}

	ErrOrderNotFound = &Error{KindNotFound, "order does not exist"}
	ErrOrderExists   = &Error{KindConstraint, "maker already has a live order"}
	ErrPendingDeals  = &Error{KindInvalidState, "order has pending deals"}

	ErrDealNotFound     = &Error{KindNotFound, "deal does not exist"}
	ErrDealNotOpen      = &Error{KindInvalidState, "deal is not awaiting confirmation"}
	ErrDealNotConfirmed = &Error{KindInvalidState, "deal is not confirmed"}
	ErrNoCollateral     = &Error{KindInvalidState, "no collateral to redeem"}

	ErrAdjudicationNotFound = &Error{KindNotFound, "adjudication does not exist"}
	ErrAdjudicationExists   = &Error{KindConstraint, "deal already has an adjudication"}
	ErrAlreadyResponded     = &Error{KindInvalidState, "adjudication already responded"}
	ErrAdjudicationFinal    = &Error{KindInvalidState, "adjudication already decided"}
	ErrInvalidWinner        = &Error{KindConstraint, "winner must be plaintiff or defendant"}

	ErrNotOwner         = &Error{KindUnauthorized, "only the owner can do this"}
	ErrNotOrderMaker    = &Error{KindUnauthorized, "only the order maker can do this"}
	ErrNotDealMaker     = &Error{KindUnauthorized, "only the deal maker can confirm"}
	ErrNotDealTaker     = &Error{KindUnauthorized, "only the deal taker can do this"}
	ErrInvalidPlaintiff = &Error{KindUnauthorized, "only the deal maker can file a dispute"}
	ErrNotDefendant     = &Error{KindUnauthorized, "only the defendant can respond"}
	ErrNotArbitrator    = &Error{KindUnauthorized, "caller is not allowed to judge"}

	ErrAmountNotPositive     = &Error{KindConstraint, "amount should be greater than 0"}
	ErrPriceNotPositive      = &Error{KindConstraint, "price should be greater than 0"}
	ErrBelowMinTrade         = &Error{KindConstraint, "amount is below the minimum trade amount"}
	ErrInsufficientRemaining = &Error{KindConstraint, "remaining amount is insufficient"}
	ErrSelfTrade             = &Error{KindConstraint, "cannot trade with self"}
	ErrRateUnavailable       = &Error{KindConstraint, "no exchange rate for collateral asset"}
	ErrTransferFailed        = &Error{KindConstraint, "balance transfer failed"}
	ErrInvalidParams         = &Error{KindConstraint, "invalid parameters"}

	ErrFrozenPeriodNotElapsed  = &Error{KindTiming, "frozen period has not elapsed"}
	ErrDealNotExpired          = &Error{KindTiming, "deal has not exceeded the expiry period"}
	ErrRespondPeriodNotElapsed = &Error{KindTiming, "respond period has not elapsed"}

	ErrBlacklisted = &Error{KindPolicy, "address is blacklisted"}
)

// KindOf reports the taxonomy kind of an engine error. The second return is
// false for errors that did not originate in the engine.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}
