package badges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/store"
)

// Service records badge awards.
type Service struct {
	repo   store.BadgeRepo
	logger *zap.Logger
}

// NewService creates a badge Service.
func NewService(repo store.BadgeRepo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Award grants badge to userID. It is idempotent: a second call returns
// the stored award and ErrAlreadyAwarded.
func (s *Service) Award(ctx context.Context, userID string, badge Badge, stats Stats) (*Award, error) {
	if !stats.Complete() {
		return nil, fmt.Errorf("%w: %d/%d tasks", ErrIncomplete, stats.CompletedCount, stats.TotalTasks)
	}

	award := &Award{
		UserID:    userID,
		Badge:     badge,
		Rarity:    RarityFor(stats),
		Stats:     stats,
		AwardedAt: time.Now(),
	}
	err := s.repo.Insert(ctx, store.BadgeRow{
		UserID:         userID,
		ModuleID:       badge.ModuleID,
		Name:           badge.Name,
		Icon:           badge.Icon,
		Rarity:         string(award.Rarity),
		CompletedCount: stats.CompletedCount,
		TotalTasks:     stats.TotalTasks,
		HintsUsed:      stats.HintsUsed,
		Attempts:       stats.Attempts,
		AwardedAt:      award.AwardedAt,
	})
	if errors.Is(err, store.ErrDuplicate) {
		existing, gerr := s.repo.Get(ctx, userID, badge.ModuleID)
		if gerr != nil {
			return nil, gerr
		}
		if existing != nil {
			return fromRow(*existing), ErrAlreadyAwarded
		}
	}
	if err != nil {
		return nil, fmt.Errorf("award badge: %w", err)
	}

	s.logger.Info("badge awarded",
		zap.String("user", userID),
		zap.String("module", badge.ModuleID),
		zap.String("rarity", string(award.Rarity)))
	return award, nil
}

// List returns the learner's badges, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Award, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Award, len(rows))
	for i, row := range rows {
		out[i] = *fromRow(row)
	}
	return out, nil
}

// Has reports whether the learner holds the badge for moduleID.
func (s *Service) Has(ctx context.Context, userID, moduleID string) (bool, error) {
	row, err := s.repo.Get(ctx, userID, moduleID)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func fromRow(row store.BadgeRow) *Award {
	return &Award{
		UserID: row.UserID,
		Badge: Badge{
			ModuleID: row.ModuleID,
			Name:     row.Name,
			Icon:     row.Icon,
		},
		Rarity: Rarity(row.Rarity),
		Stats: Stats{
			CompletedCount: row.CompletedCount,
			TotalTasks:     row.TotalTasks,
			HintsUsed:      row.HintsUsed,
			Attempts:       row.Attempts,
		},
		Sequence:  row.Sequence,
		AwardedAt: row.AwardedAt,
	}
}
