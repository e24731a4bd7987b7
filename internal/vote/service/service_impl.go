package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/stagevote/internal/clock"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	notificationdomain "github.com/smallbiznis/stagevote/internal/notification/domain"
	"github.com/smallbiznis/stagevote/internal/netctx"
	"github.com/smallbiznis/stagevote/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/userctx"
	"github.com/smallbiznis/stagevote/internal/vote/domain"
	"github.com/smallbiznis/stagevote/internal/vote/engine"
	"github.com/smallbiznis/stagevote/pkg/db"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	ContestRepo contestdomain.Repository
	OrderRepo   orderdomain.Repository
	Notifier    notificationdomain.Dispatcher `optional:"true"`
	VoteMetrics *metrics.VoteMetrics          `optional:"true"`
}

type voteService struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	contestRepo contestdomain.Repository
	orderRepo   orderdomain.Repository
	notifier    notificationdomain.Dispatcher
	voteMetrics *metrics.VoteMetrics
}

func New(p Params) domain.Service {
	return &voteService{
		db:          p.DB,
		log:         p.Log.Named("vote.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		contestRepo: p.ContestRepo,
		orderRepo:   p.OrderRepo,
		notifier:    p.Notifier,
		voteMetrics: p.VoteMetrics,
	}
}

func (s *voteService) CastFree(ctx context.Context, req domain.CastFreeRequest) (*domain.Vote, error) {
	voter := s.resolveVoter(ctx)

	contest, contestant, err := s.loadTarget(ctx, req.ContestID, req.ContestantID)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, s.db, contest.ID, contestant.ID, voter)
	if err != nil {
		return nil, err
	}

	decision := engine.Evaluate(engine.Input{
		Now:        s.clock.Now(),
		Contest:    *contest,
		Contestant: *contestant,
		Voter:      voter,
		VoteType:   domain.VoteTypeFree,
		History:    history,
	})
	if !decision.Accepted {
		s.recordRejection(decision.Reason)
		return nil, decision.Err()
	}

	vote := &domain.Vote{
		ID:           s.genID.Generate(),
		ContestID:    contest.ID,
		ContestantID: contestant.ID,
		VoteType:     domain.VoteTypeFree,
		IPAddress:    voter.IPAddress,
		UserAgent:    voter.UserAgent,
		CreatedAt:    s.clock.Now(),
	}
	if voter.Kind == domain.VoterKindMember {
		userID := voter.UserID
		vote.UserID = &userID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if voter.Kind == domain.VoterKindMember && !contest.AllowMultipleVotes {
			if err := s.guardSingleVote(ctx, tx, contest.ID, contestant.ID, voter.UserID); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, vote); err != nil {
			if db.IsDuplicateKeyErr(err) {
				if voter.Kind == domain.VoterKindGuest {
					return domain.Reject(domain.ReasonAlreadyVoted)
				}
				return domain.Reject(domain.ReasonAlreadyVotedForThis)
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.recordRejectionErr(err)
		return nil, err
	}

	s.recordCast(domain.VoteTypeFree, voter.Kind)
	s.notifyOrganizer(contest, contestant, vote)
	return vote, nil
}

func (s *voteService) CastPaid(ctx context.Context, req domain.CastPaidRequest) (*domain.Vote, error) {
	voter := s.resolveVoter(ctx)

	contest, contestant, err := s.loadTarget(ctx, req.ContestID, req.ContestantID)
	if err != nil {
		return nil, err
	}

	// Guests skip the order lookup; Evaluate rejects them after the
	// contestant and window checks.
	var order *orderdomain.VoteOrder
	if voter.Kind == domain.VoterKindMember {
		if req.OrderID == 0 {
			return nil, domain.ErrInvalidID
		}
		order, err = s.orderRepo.FindByID(ctx, s.db, req.OrderID)
		if err != nil {
			return nil, err
		}
		if order == nil || order.ContestID != contest.ID {
			return nil, domain.ErrOrderNotFound
		}
	}

	history, err := s.loadHistory(ctx, s.db, contest.ID, contestant.ID, voter)
	if err != nil {
		return nil, err
	}

	decision := engine.Evaluate(engine.Input{
		Now:        s.clock.Now(),
		Contest:    *contest,
		Contestant: *contestant,
		Voter:      voter,
		VoteType:   domain.VoteTypePaid,
		Order:      order,
		History:    history,
	})
	if !decision.Accepted {
		s.recordRejection(decision.Reason)
		return nil, decision.Err()
	}

	userID := voter.UserID
	orderID := order.ID
	vote := &domain.Vote{
		ID:           s.genID.Generate(),
		ContestID:    contest.ID,
		ContestantID: contestant.ID,
		UserID:       &userID,
		VoteOrderID:  &orderID,
		VoteType:     domain.VoteTypePaid,
		IPAddress:    voter.IPAddress,
		UserAgent:    voter.UserAgent,
		CreatedAt:    s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !contest.AllowMultipleVotes {
			if err := s.guardSingleVote(ctx, tx, contest.ID, contestant.ID, voter.UserID); err != nil {
				return err
			}
		}

		// The decrement is the authoritative balance check. Evaluate saw a
		// snapshot; a concurrent cast may have drained the order since.
		consumed, err := s.orderRepo.ConsumeVote(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return domain.Reject(domain.ReasonNoVotesRemaining)
		}

		return s.repo.Insert(ctx, tx, vote)
	})
	if err != nil {
		s.recordRejectionErr(err)
		return nil, err
	}

	s.recordCast(domain.VoteTypePaid, voter.Kind)
	s.notifyOrganizer(contest, contestant, vote)
	return vote, nil
}

func (s *voteService) resolveVoter(ctx context.Context) domain.Voter {
	nc, _ := netctx.FromContext(ctx)
	if nc.IPAddress == "" {
		nc.IPAddress = "unknown"
	}
	if userID, ok := userctx.UserIDFromContext(ctx); ok {
		return domain.MemberVoter(userID, nc.IPAddress, nc.UserAgent)
	}
	return domain.GuestVoter(nc.IPAddress, nc.UserAgent)
}

func (s *voteService) loadTarget(ctx context.Context, contestID, contestantID snowflake.ID) (*contestdomain.Contest, *contestdomain.Contestant, error) {
	if contestID == 0 || contestantID == 0 {
		return nil, nil, domain.ErrInvalidID
	}

	contest, err := s.contestRepo.FindByID(ctx, s.db, contestID)
	if err != nil {
		return nil, nil, err
	}
	if contest == nil {
		return nil, nil, domain.ErrContestNotFound
	}

	contestant, err := s.contestRepo.FindContestantByID(ctx, s.db, contestantID)
	if err != nil {
		return nil, nil, err
	}
	if contestant == nil || contestant.ContestID != contest.ID {
		return nil, nil, domain.ErrContestantNotFound
	}
	return contest, contestant, nil
}

func (s *voteService) loadHistory(ctx context.Context, tx *gorm.DB, contestID, contestantID snowflake.ID, voter domain.Voter) (engine.VoterHistory, error) {
	var history engine.VoterHistory

	if voter.Kind == domain.VoterKindGuest {
		voted, err := s.repo.GuestHistory(ctx, tx, contestID, voter.IPAddress)
		if err != nil {
			return history, err
		}
		history.GuestVotedInContest = voted
		return history, nil
	}

	h, err := s.repo.MemberHistory(ctx, tx, contestID, contestantID, voter.UserID)
	if err != nil {
		return history, err
	}
	history.VotedForContestant = h.VotedForContestant
	history.VotesInContest = h.VotesInContest
	history.FreeVotesInContest = h.FreeVotesInContest
	return history, nil
}

// guardSingleVote re-checks the one-contestant rule inside the transaction.
// The contest row is locked first so two concurrent casts from the same
// member serialize; the pre-transaction evaluate alone cannot rule out a
// vote committed in between.
func (s *voteService) guardSingleVote(ctx context.Context, tx *gorm.DB, contestID, contestantID, userID snowflake.ID) error {
	var locked contestdomain.Contest
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&locked, "id = ?", contestID).Error; err != nil {
		return err
	}

	history, err := s.repo.MemberHistory(ctx, tx, contestID, contestantID, userID)
	if err != nil {
		return err
	}
	if history.VotesInContest > 0 {
		return domain.Reject(domain.ReasonOneContestantOnly)
	}
	return nil
}

func (s *voteService) notifyOrganizer(contest *contestdomain.Contest, contestant *contestdomain.Contestant, vote *domain.Vote) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(context.Background(), notificationdomain.Message{
		Type:   notificationdomain.TypeVoteReceived,
		Title:  "New vote received",
		Body:   fmt.Sprintf("%s received a new %s vote in %s", contestant.Name, vote.VoteType, contest.Title),
		UserID: contest.OrganizerID,
		Metadata: map[string]interface{}{
			"contest_id":    contest.ID.String(),
			"contestant_id": contestant.ID.String(),
			"vote_id":       vote.ID.String(),
			"vote_type":     string(vote.VoteType),
		},
	})
}

func (s *voteService) recordCast(voteType domain.VoteType, kind domain.VoterKind) {
	if s.voteMetrics != nil {
		s.voteMetrics.RecordVoteCast(string(voteType), string(kind))
	}
}

func (s *voteService) recordRejection(reason domain.RejectReason) {
	if s.voteMetrics != nil {
		s.voteMetrics.RecordVoteRejected(string(reason))
	}
}

func (s *voteService) recordRejectionErr(err error) {
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		s.recordRejection(rejection.Reason)
	}
}
