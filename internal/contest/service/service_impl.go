package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/stagevote/internal/clock"
	"github.com/smallbiznis/stagevote/internal/contest/domain"
	"github.com/smallbiznis/stagevote/internal/userctx"
	"github.com/smallbiznis/stagevote/pkg/db"
	"github.com/smallbiznis/stagevote/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("contest.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContestRequest) (domain.Contest, error) {
	organizerID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.Contest{}, domain.ErrInvalidUser
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Contest{}, domain.ErrInvalidTitle
	}

	votingType := domain.VotingType(strings.ToUpper(strings.TrimSpace(req.VotingType)))
	if !votingType.Valid() {
		return domain.Contest{}, domain.ErrInvalidVotingType
	}

	if req.VotingStartAt != nil && req.VotingEndAt != nil && req.VotingEndAt.Before(*req.VotingStartAt) {
		return domain.Contest{}, domain.ErrInvalidVotingWindow
	}

	// A paid contest without packages needs a per-vote price.
	if votingType == domain.VotingTypePaid && !req.VotePackagesEnabled {
		if req.DefaultVotePrice == nil || *req.DefaultVotePrice <= 0 {
			return domain.Contest{}, domain.ErrInvalidVotePrice
		}
	}

	if req.MaxVotesPerUser != nil && *req.MaxVotesPerUser <= 0 {
		return domain.Contest{}, domain.ErrInvalidVoteLimit
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.clock.Now()
	contest := domain.Contest{
		ID:                  s.genID.Generate(),
		OrganizerID:         organizerID,
		Title:               title,
		Description:         strings.TrimSpace(req.Description),
		VotingType:          votingType,
		VotingStartAt:       req.VotingStartAt,
		VotingEndAt:         req.VotingEndAt,
		AllowGuestVoting:    req.AllowGuestVoting,
		AllowMultipleVotes:  req.AllowMultipleVotes,
		MaxVotesPerUser:     req.MaxVotesPerUser,
		VotePackagesEnabled: req.VotePackagesEnabled,
		DefaultVotePrice:    req.DefaultVotePrice,
		Currency:            currency,
		ShowLiveResults:     req.ShowLiveResults,
		ShowVoterNames:      req.ShowVoterNames,
		Metadata:            datatypes.JSONMap{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Insert(ctx, s.db, &contest); err != nil {
		return domain.Contest{}, err
	}

	return contest, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateContestRequest) (domain.Contest, error) {
	contest, err := s.findOwned(ctx, req.ID)
	if err != nil {
		return domain.Contest{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.Contest{}, domain.ErrInvalidTitle
		}
		contest.Title = title
	}
	if req.Description != nil {
		contest.Description = strings.TrimSpace(*req.Description)
	}
	if req.VotingStartAt != nil {
		contest.VotingStartAt = req.VotingStartAt
	}
	if req.VotingEndAt != nil {
		contest.VotingEndAt = req.VotingEndAt
	}
	if contest.VotingStartAt != nil && contest.VotingEndAt != nil && contest.VotingEndAt.Before(*contest.VotingStartAt) {
		return domain.Contest{}, domain.ErrInvalidVotingWindow
	}
	if req.AllowGuestVoting != nil {
		contest.AllowGuestVoting = *req.AllowGuestVoting
	}
	if req.AllowMultipleVotes != nil {
		contest.AllowMultipleVotes = *req.AllowMultipleVotes
	}
	if req.MaxVotesPerUser != nil {
		if *req.MaxVotesPerUser <= 0 {
			return domain.Contest{}, domain.ErrInvalidVoteLimit
		}
		contest.MaxVotesPerUser = req.MaxVotesPerUser
	}
	if req.ShowLiveResults != nil {
		contest.ShowLiveResults = *req.ShowLiveResults
	}
	if req.ShowVoterNames != nil {
		contest.ShowVoterNames = *req.ShowVoterNames
	}

	contest.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, contest); err != nil {
		return domain.Contest{}, err
	}

	return *contest, nil
}

func (s *Service) List(ctx context.Context, req domain.ListContestRequest) (domain.ListContestResponse, error) {
	organizerID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ListContestResponse{}, domain.ErrInvalidUser
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, domain.ListContestFilter{
		OrganizerID: organizerID,
		VotingType:  domain.VotingType(strings.ToUpper(strings.TrimSpace(req.VotingType))),
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListContestResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(contest *domain.Contest) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        contest.ID.String(),
			CreatedAt: contest.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	contests := make([]domain.Contest, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contests = append(contests, *item)
	}

	resp := domain.ListContestResponse{Contests: contests}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Contest, error) {
	contestID, err := s.parseID(id)
	if err != nil {
		return domain.Contest{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, contestID)
	if err != nil {
		return domain.Contest{}, err
	}
	if item == nil {
		return domain.Contest{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) AddContestant(ctx context.Context, req domain.AddContestantRequest) (domain.Contestant, error) {
	contest, err := s.findOwned(ctx, req.ContestID)
	if err != nil {
		return domain.Contestant{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Contestant{}, domain.ErrInvalidContestantName
	}
	if req.ContestNumber <= 0 {
		return domain.Contestant{}, domain.ErrInvalidContestNumber
	}

	now := s.clock.Now()
	contestant := domain.Contestant{
		ID:            s.genID.Generate(),
		ContestID:     contest.ID,
		ContestNumber: req.ContestNumber,
		Name:          name,
		Bio:           strings.TrimSpace(req.Bio),
		PhotoURL:      strings.TrimSpace(req.PhotoURL),
		Status:        domain.ContestantStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.InsertContestant(ctx, s.db, &contestant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Contestant{}, domain.ErrDuplicateContestNumber
		}
		return domain.Contestant{}, err
	}

	return contestant, nil
}

func (s *Service) SetContestantStatus(ctx context.Context, req domain.SetContestantStatusRequest) (domain.Contestant, error) {
	contest, err := s.findOwned(ctx, req.ContestID)
	if err != nil {
		return domain.Contestant{}, err
	}

	status := domain.ContestantStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return domain.Contestant{}, domain.ErrInvalidStatus
	}

	contestantID, err := s.parseID(req.ContestantID)
	if err != nil {
		return domain.Contestant{}, err
	}

	contestant, err := s.repo.FindContestantByID(ctx, s.db, contestantID)
	if err != nil {
		return domain.Contestant{}, err
	}
	if contestant == nil || contestant.ContestID != contest.ID {
		return domain.Contestant{}, domain.ErrContestantNotFound
	}

	if err := s.repo.UpdateContestantStatus(ctx, s.db, contestantID, status); err != nil {
		return domain.Contestant{}, err
	}

	contestant.Status = status
	contestant.UpdatedAt = s.clock.Now()
	return *contestant, nil
}

func (s *Service) Roster(ctx context.Context, contestID string) ([]domain.Contestant, error) {
	id, err := s.parseID(contestID)
	if err != nil {
		return nil, err
	}

	contest, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.ListContestants(ctx, s.db, id, true)
	if err != nil {
		return nil, err
	}

	contestants := make([]domain.Contestant, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contestants = append(contestants, *item)
	}
	return contestants, nil
}

func (s *Service) findOwned(ctx context.Context, id string) (*domain.Contest, error) {
	organizerID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}

	contestID, err := s.parseID(id)
	if err != nil {
		return nil, err
	}

	contest, err := s.repo.FindByID(ctx, s.db, contestID)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return nil, domain.ErrNotFound
	}
	if contest.OrganizerID != organizerID {
		return nil, domain.ErrNotOwner
	}
	return contest, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
