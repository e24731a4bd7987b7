package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/smallbiznis/stagevote/internal/auth/domain"
	"github.com/smallbiznis/stagevote/internal/auth/password"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
)

const (
	demoOrganizerEmail    = "organizer@stagevote.local"
	demoOrganizerPassword = "organizer"
	demoOrganizerDisplay  = "Demo Organizer"
	demoContestTitle      = "Demo Talent Night"
)

// EnsureDemoData seeds a demo organizer and a free contest with three
// contestants so a fresh install has something to vote on.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		organizer, err := ensureDemoOrganizer(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureDemoContest(ctx, tx, node, organizer.ID)
	})
}

func ensureDemoOrganizer(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*authdomain.User, error) {
	var user authdomain.User
	err := tx.WithContext(ctx).Where("email = ?", demoOrganizerEmail).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(demoOrganizerPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user = authdomain.User{
		ID:                  node.Generate(),
		Email:               demoOrganizerEmail,
		DisplayName:         demoOrganizerDisplay,
		PasswordHash:        hashed,
		LastPasswordChanged: &now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureDemoContest(ctx context.Context, tx *gorm.DB, node *snowflake.Node, organizerID snowflake.ID) error {
	var contest contestdomain.Contest
	err := tx.WithContext(ctx).
		Where("organizer_id = ? AND title = ?", organizerID, demoContestTitle).
		First(&contest).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	end := now.Add(30 * 24 * time.Hour)
	contest = contestdomain.Contest{
		ID:                 node.Generate(),
		OrganizerID:        organizerID,
		Title:              demoContestTitle,
		Description:        "A seeded contest for trying out voting.",
		VotingType:         contestdomain.VotingTypeFree,
		VotingStartAt:      &now,
		VotingEndAt:        &end,
		AllowGuestVoting:   true,
		AllowMultipleVotes: true,
		Currency:           "USD",
		ShowLiveResults:    true,
	}
	if err := tx.WithContext(ctx).Create(&contest).Error; err != nil {
		return err
	}

	for i, name := range []string{"The Night Owls", "Silver Strings", "Brass & Bloom"} {
		contestant := contestdomain.Contestant{
			ID:            node.Generate(),
			ContestID:     contest.ID,
			ContestNumber: i + 1,
			Name:          name,
			Status:        contestdomain.ContestantStatusActive,
		}
		if err := tx.WithContext(ctx).Create(&contestant).Error; err != nil {
			return err
		}
	}
	return nil
}
