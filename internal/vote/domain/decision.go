package domain

import "fmt"

// RejectReason enumerates why a vote was refused. The codes are stable and
// surfaced verbatim to API clients.
type RejectReason string

const (
	ReasonContestantInactive   RejectReason = "CONTESTANT_INACTIVE"
	ReasonVotingNotStarted     RejectReason = "VOTING_NOT_STARTED"
	ReasonVotingEnded          RejectReason = "VOTING_ENDED"
	ReasonWrongVotingType      RejectReason = "WRONG_VOTING_TYPE"
	ReasonGuestVotingDisabled  RejectReason = "GUEST_VOTING_DISABLED"
	ReasonAlreadyVoted         RejectReason = "ALREADY_VOTED"
	ReasonAlreadyVotedForThis  RejectReason = "ALREADY_VOTED_CONTESTANT"
	ReasonOneContestantOnly    RejectReason = "ONE_CONTESTANT_ONLY"
	ReasonVoteLimitReached     RejectReason = "VOTE_LIMIT_REACHED"
	ReasonOrderNotOwned        RejectReason = "ORDER_NOT_OWNED"
	ReasonPaymentIncomplete    RejectReason = "PAYMENT_INCOMPLETE"
	ReasonNoVotesRemaining     RejectReason = "NO_VOTES_REMAINING"
	ReasonOrderExpired         RejectReason = "ORDER_EXPIRED"
)

// RejectionError wraps a RejectReason so callers can distinguish a business
// rejection from infrastructure failures with errors.As.
type RejectionError struct {
	Reason RejectReason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("vote rejected: %s", e.Reason)
}

func Reject(reason RejectReason) error {
	return &RejectionError{Reason: reason}
}

// Decision is the outcome of eligibility evaluation. Accepted decisions carry
// no reason; rejected ones carry exactly one.
type Decision struct {
	Accepted bool
	Reason   RejectReason
}

func Accept() Decision { return Decision{Accepted: true} }

func Deny(reason RejectReason) Decision {
	return Decision{Accepted: false, Reason: reason}
}

// Err converts a rejected decision into a RejectionError, or nil if accepted.
func (d Decision) Err() error {
	if d.Accepted {
		return nil
	}
	return Reject(d.Reason)
}
