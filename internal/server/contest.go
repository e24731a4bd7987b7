package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	"github.com/smallbiznis/stagevote/pkg/db/pagination"
)

type createContestRequest struct {
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	VotingType          string     `json:"voting_type"`
	VotingStartAt       *time.Time `json:"voting_start_at"`
	VotingEndAt         *time.Time `json:"voting_end_at"`
	AllowGuestVoting    bool       `json:"allow_guest_voting"`
	AllowMultipleVotes  bool       `json:"allow_multiple_votes"`
	MaxVotesPerUser     *int       `json:"max_votes_per_user"`
	VotePackagesEnabled bool       `json:"vote_packages_enabled"`
	DefaultVotePrice    *int64     `json:"default_vote_price"`
	Currency            string     `json:"currency"`
	ShowLiveResults     *bool      `json:"show_live_results"`
	ShowVoterNames      bool       `json:"show_voter_names"`
}

func (s *Server) CreateContest(c *gin.Context) {
	var req createContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	showLiveResults := true
	if req.ShowLiveResults != nil {
		showLiveResults = *req.ShowLiveResults
	}

	resp, err := s.contestSvc.Create(c.Request.Context(), contestdomain.CreateContestRequest{
		Title:               strings.TrimSpace(req.Title),
		Description:         strings.TrimSpace(req.Description),
		VotingType:          strings.ToUpper(strings.TrimSpace(req.VotingType)),
		VotingStartAt:       req.VotingStartAt,
		VotingEndAt:         req.VotingEndAt,
		AllowGuestVoting:    req.AllowGuestVoting,
		AllowMultipleVotes:  req.AllowMultipleVotes,
		MaxVotesPerUser:     req.MaxVotesPerUser,
		VotePackagesEnabled: req.VotePackagesEnabled,
		DefaultVotePrice:    req.DefaultVotePrice,
		Currency:            strings.ToUpper(strings.TrimSpace(req.Currency)),
		ShowLiveResults:     showLiveResults,
		ShowVoterNames:      req.ShowVoterNames,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContests(c *gin.Context) {
	var query struct {
		pagination.Pagination
		VotingType string `form:"voting_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contestSvc.List(c.Request.Context(), contestdomain.ListContestRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		VotingType: strings.ToUpper(strings.TrimSpace(query.VotingType)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContest(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.contestSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateContestRequest struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	VotingStartAt      *time.Time `json:"voting_start_at"`
	VotingEndAt        *time.Time `json:"voting_end_at"`
	AllowGuestVoting   *bool      `json:"allow_guest_voting"`
	AllowMultipleVotes *bool      `json:"allow_multiple_votes"`
	MaxVotesPerUser    *int       `json:"max_votes_per_user"`
	ShowLiveResults    *bool      `json:"show_live_results"`
	ShowVoterNames     *bool      `json:"show_voter_names"`
}

func (s *Server) UpdateContest(c *gin.Context) {
	var req updateContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contestSvc.Update(c.Request.Context(), contestdomain.UpdateContestRequest{
		ID:                 strings.TrimSpace(c.Param("id")),
		Title:              req.Title,
		Description:        req.Description,
		VotingStartAt:      req.VotingStartAt,
		VotingEndAt:        req.VotingEndAt,
		AllowGuestVoting:   req.AllowGuestVoting,
		AllowMultipleVotes: req.AllowMultipleVotes,
		MaxVotesPerUser:    req.MaxVotesPerUser,
		ShowLiveResults:    req.ShowLiveResults,
		ShowVoterNames:     req.ShowVoterNames,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type addContestantRequest struct {
	ContestNumber int    `json:"contest_number"`
	Name          string `json:"name"`
	Bio           string `json:"bio"`
	PhotoURL      string `json:"photo_url"`
}

func (s *Server) AddContestant(c *gin.Context) {
	var req addContestantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contestSvc.AddContestant(c.Request.Context(), contestdomain.AddContestantRequest{
		ContestID:     strings.TrimSpace(c.Param("id")),
		ContestNumber: req.ContestNumber,
		Name:          strings.TrimSpace(req.Name),
		Bio:           strings.TrimSpace(req.Bio),
		PhotoURL:      strings.TrimSpace(req.PhotoURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setContestantStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) SetContestantStatus(c *gin.Context) {
	var req setContestantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contestSvc.SetContestantStatus(c.Request.Context(), contestdomain.SetContestantStatusRequest{
		ContestID:    strings.TrimSpace(c.Param("id")),
		ContestantID: strings.TrimSpace(c.Param("contestantId")),
		Status:       strings.ToUpper(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// publicContestView strips organizer-only fields from the contest page.
type publicContestView struct {
	ID                  string                    `json:"id"`
	Title               string                    `json:"title"`
	Description         string                    `json:"description,omitempty"`
	VotingType          contestdomain.VotingType  `json:"voting_type"`
	VotingStartAt       *time.Time                `json:"voting_start_at,omitempty"`
	VotingEndAt         *time.Time                `json:"voting_end_at,omitempty"`
	AllowGuestVoting    bool                      `json:"allow_guest_voting"`
	AllowMultipleVotes  bool                      `json:"allow_multiple_votes"`
	MaxVotesPerUser     *int                      `json:"max_votes_per_user,omitempty"`
	VotePackagesEnabled bool                      `json:"vote_packages_enabled"`
	DefaultVotePrice    *int64                    `json:"default_vote_price,omitempty"`
	Currency            string                    `json:"currency"`
	ShowLiveResults     bool                      `json:"show_live_results"`
	Contestants         []contestdomain.Contestant `json:"contestants"`
}

func (s *Server) PublicContest(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	contest, err := s.contestSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	roster, err := s.contestSvc.Roster(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": publicContestView{
		ID:                  contest.ID.String(),
		Title:               contest.Title,
		Description:         contest.Description,
		VotingType:          contest.VotingType,
		VotingStartAt:       contest.VotingStartAt,
		VotingEndAt:         contest.VotingEndAt,
		AllowGuestVoting:    contest.AllowGuestVoting,
		AllowMultipleVotes:  contest.AllowMultipleVotes,
		MaxVotesPerUser:     contest.MaxVotesPerUser,
		VotePackagesEnabled: contest.VotePackagesEnabled,
		DefaultVotePrice:    contest.DefaultVotePrice,
		Currency:            contest.Currency,
		ShowLiveResults:     contest.ShowLiveResults,
		Contestants:         roster,
	}})
}
