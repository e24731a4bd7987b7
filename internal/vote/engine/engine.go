// Package engine holds the pure eligibility rules for casting a vote.
// Evaluate works only on the snapshots it is handed and never touches the
// store, so the same inputs always produce the same decision. The service
// layer is responsible for supplying consistent snapshots and for closing
// the remaining races with database constraints.
package engine

import (
	"time"

	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/vote/domain"
)

// VoterHistory is a read snapshot of the voter's prior activity in the
// contest, loaded before evaluation.
type VoterHistory struct {
	// GuestVotedInContest is true when any guest vote from the same IP
	// exists in the contest.
	GuestVotedInContest bool

	// VotedForContestant is true when the member already holds a FREE vote
	// for the target contestant.
	VotedForContestant bool

	// VotesInContest counts all of the member's votes in the contest,
	// across contestants and vote types.
	VotesInContest int64

	// FreeVotesInContest counts only the member's FREE votes in the contest.
	FreeVotesInContest int64
}

// Input bundles everything a single evaluation needs. Order may be nil for
// FREE votes and must be set for PAID votes.
type Input struct {
	Now        time.Time
	Contest    contestdomain.Contest
	Contestant contestdomain.Contestant
	Voter      domain.Voter
	VoteType   domain.VoteType
	Order      *orderdomain.VoteOrder
	History    VoterHistory
}

// Evaluate applies the decision rules in order and returns the first failure,
// or an accepting decision when every rule passes.
func Evaluate(in Input) domain.Decision {
	if in.Contestant.Status != contestdomain.ContestantStatusActive {
		return domain.Deny(domain.ReasonContestantInactive)
	}
	if in.Contest.VotingStartAt != nil && in.Now.Before(*in.Contest.VotingStartAt) {
		return domain.Deny(domain.ReasonVotingNotStarted)
	}
	if in.Contest.VotingEndAt != nil && in.Now.After(*in.Contest.VotingEndAt) {
		return domain.Deny(domain.ReasonVotingEnded)
	}
	if string(in.VoteType) != string(in.Contest.VotingType) {
		return domain.Deny(domain.ReasonWrongVotingType)
	}

	if in.Voter.Kind == domain.VoterKindGuest {
		return evaluateGuest(in)
	}
	return evaluateMember(in)
}

// Guests only ever cast FREE votes and get at most one vote in the whole
// contest, keyed by IP. This is stricter than the member path on purpose.
func evaluateGuest(in Input) domain.Decision {
	if !in.Contest.AllowGuestVoting || in.VoteType != domain.VoteTypeFree {
		return domain.Deny(domain.ReasonGuestVotingDisabled)
	}
	if in.History.GuestVotedInContest {
		return domain.Deny(domain.ReasonAlreadyVoted)
	}
	return domain.Accept()
}

func evaluateMember(in Input) domain.Decision {
	switch in.VoteType {
	case domain.VoteTypeFree:
		if in.History.VotedForContestant {
			return domain.Deny(domain.ReasonAlreadyVotedForThis)
		}
		if !in.Contest.AllowMultipleVotes && in.History.VotesInContest > 0 {
			return domain.Deny(domain.ReasonOneContestantOnly)
		}
		if in.Contest.MaxVotesPerUser != nil && in.History.FreeVotesInContest >= int64(*in.Contest.MaxVotesPerUser) {
			return domain.Deny(domain.ReasonVoteLimitReached)
		}
	case domain.VoteTypePaid:
		if in.Order == nil || in.Order.UserID != in.Voter.UserID {
			return domain.Deny(domain.ReasonOrderNotOwned)
		}
		if in.Order.PaymentStatus != orderdomain.PaymentStatusCompleted {
			return domain.Deny(domain.ReasonPaymentIncomplete)
		}
		if in.Order.VotesRemaining <= 0 {
			return domain.Deny(domain.ReasonNoVotesRemaining)
		}
		if in.Order.ExpiresAt != nil && in.Now.After(*in.Order.ExpiresAt) {
			return domain.Deny(domain.ReasonOrderExpired)
		}
		if !in.Contest.AllowMultipleVotes && in.History.VotesInContest > 0 {
			return domain.Deny(domain.ReasonOneContestantOnly)
		}
	}
	return domain.Accept()
}
