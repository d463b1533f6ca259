package services

import (
	"context"

	"courtside/economy"
	"courtside/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ProgressionService struct {
	DB           *gorm.DB
	Economy      *Economy
	Achievements *AchievementService
}

func NewProgressionService(db *gorm.DB, eco *Economy, achievements *AchievementService) *ProgressionService {
	return &ProgressionService{DB: db, Economy: eco, Achievements: achievements}
}

// ProgressView is the progress row plus derived level progress.
type ProgressView struct {
	Progress     *models.UserProgress     `json:"progress"`
	XP           economy.XPProgress       `json:"xp"`
	Achievements []models.UserAchievement `json:"achievements"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	TotalXP     int64  `json:"total_xp"`
	Level       int    `json:"level"`
	MatchesWon  int64  `json:"matches_won"`
}

// EnsureProgress ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	var prog *models.UserProgress
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		prog, err = s.Economy.WithTx(tx).ensureProgress(tx, userID)
		return err
	})
	return prog, err
}

// GetProgress applies pending HP regeneration and returns the current state.
func (s *ProgressionService) GetProgress(ctx context.Context, userID string) (*ProgressView, error) {
	if _, err := s.Economy.RegenerateHP(ctx, userID); err != nil {
		return nil, err
	}
	var prog models.UserProgress
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, errors.Wrap(err, "load progress")
	}
	view := &ProgressView{
		Progress: &prog,
		XP:       economy.GetXPProgress(prog.TotalXP, prog.Level),
	}
	if s.Achievements != nil {
		got, err := s.Achievements.ForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		view.Achievements = got
	}
	return view, nil
}

// History returns paginated token transactions and matches.
func (s *ProgressionService) History(ctx context.Context, userID string, page, size int) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	db := s.DB.WithContext(ctx)

	var totalTx, totalMatches int64
	if err := db.Model(&models.TokenTransaction{}).Where("user_id = ?", userID).Count(&totalTx).Error; err != nil {
		return nil, errors.Wrap(err, "count transactions")
	}
	matchScope := db.Model(&models.Match{}).Where("challenger_id = ? OR opponent_id = ?", userID, userID)
	if err := matchScope.Count(&totalMatches).Error; err != nil {
		return nil, errors.Wrap(err, "count matches")
	}

	var txs []models.TokenTransaction
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&txs).Error; err != nil {
		return nil, errors.Wrap(err, "list transactions")
	}

	var matches []models.Match
	if err := db.Where("challenger_id = ? OR opponent_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&matches).Error; err != nil {
		return nil, errors.Wrap(err, "list matches")
	}

	totalItems := totalTx + totalMatches
	totalPages := int((totalItems + int64(size) - 1) / int64(size))

	return map[string]interface{}{
		"transactions":       txs,
		"matches":            matches,
		"page":               page,
		"size":               size,
		"total_items":        totalItems,
		"total_pages":        totalPages,
		"total_transactions": totalTx,
		"total_matches":      totalMatches,
	}, nil
}

// Leaderboard ranks players by total XP.
func (s *ProgressionService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var rows []LeaderboardEntry
	err := s.DB.WithContext(ctx).
		Table("user_progresses AS p").
		Select("p.user_id, COALESCE(pp.display_name, '') AS display_name, p.total_xp, p.level, p.matches_won").
		Joins("LEFT JOIN player_profiles pp ON pp.user_id = p.user_id AND pp.deleted_at IS NULL").
		Order("p.total_xp DESC, p.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "leaderboard")
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// GrantXP is the admin path for manual XP corrections.
func (s *ProgressionService) GrantXP(ctx context.Context, userID string, xp int64, reason string) (*XPAward, error) {
	if xp <= 0 {
		return nil, invalid("xp must be positive")
	}
	if reason == "" {
		reason = "admin_grant"
	}
	return s.Economy.AwardXP(ctx, userID, xp, reason)
}

// bump increments activity counters on the caller's transaction.
func bump(tx *gorm.DB, userID string, counters map[string]int64) error {
	updates := make(map[string]interface{}, len(counters))
	for col, by := range counters {
		updates[col] = gorm.Expr(col+" + ?", by)
	}
	return errors.Wrap(
		tx.Model(&models.UserProgress{}).Where("user_id = ?", userID).Updates(updates).Error,
		"update counters")
}
