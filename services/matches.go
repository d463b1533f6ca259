package services

import (
	"context"
	"time"

	"courtside/analysis"
	"courtside/economy"
	"courtside/models"
	"courtside/realtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const matchesTable = "matches"

type MatchService struct {
	DB        *gorm.DB
	Economy   *Economy
	Opponents analysis.OpponentAnalyzer
	Publisher realtime.Publisher
	Logger    *zap.Logger
}

func NewMatchService(db *gorm.DB, eco *Economy, lookup analysis.OpponentLookup, pub realtime.Publisher, logger *zap.Logger) *MatchService {
	return &MatchService{
		DB:        db,
		Economy:   eco,
		Opponents: analysis.OpponentAnalyzer{Lookup: lookup},
		Publisher: pub,
		Logger:    logger,
	}
}

type ChallengeInput struct {
	OpponentID   string     `json:"opponent_id"`
	OpponentName string     `json:"opponent_name"`
	Manual       bool       `json:"manual"`
	Stake        int64      `json:"stake"`
	Location     string     `json:"location"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
}

type MatchResult struct {
	Match    *models.Match          `json:"match"`
	Analysis analysis.ScoreAnalysis `json:"analysis"`
	Reward   economy.MatchReward    `json:"reward"`
}

func (s *MatchService) Get(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &m, errors.Wrap(err, "load match")
}

func (s *MatchService) List(ctx context.Context, userID, status string) ([]models.Match, error) {
	q := s.DB.WithContext(ctx).Where("challenger_id = ? OR opponent_id = ?", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Match
	err := q.Order("created_at DESC").Limit(100).Find(&out).Error
	return out, errors.Wrap(err, "list matches")
}

// Challenge creates a match. A stake is discounted for the level gap and
// escrowed from the challenger; manual opponents never carry a stake.
func (s *MatchService) Challenge(ctx context.Context, challengerID string, in ChallengeInput) (*models.Match, *economy.StakeAdjustment, error) {
	if in.Stake < 0 {
		return nil, nil, invalid("stake must not be negative")
	}
	if in.Manual {
		if in.OpponentName == "" {
			return nil, nil, invalid("opponent_name required for a manual match")
		}
		if in.Stake > 0 {
			return nil, nil, invalid("manual matches cannot carry a stake")
		}
	} else {
		if in.OpponentID == "" {
			return nil, nil, invalid("opponent_id required")
		}
		if in.OpponentID == challengerID {
			return nil, nil, invalid("cannot challenge yourself")
		}
	}

	var (
		match models.Match
		adj   economy.StakeAdjustment
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eco := s.Economy.WithTx(tx)
		challenger, err := eco.ensureProgress(tx, challengerID)
		if err != nil {
			return err
		}

		match = models.Match{
			ChallengerID:    challengerID,
			ChallengerLevel: challenger.Level,
			OpponentName:    in.OpponentName,
			Manual:          in.Manual,
			RequestedStake:  in.Stake,
			Location:        in.Location,
			ScheduledAt:     in.ScheduledAt,
			Status:          models.MatchPending,
		}

		if in.Manual {
			est := s.Opponents.Analyze(ctx, analysis.OpponentRef{Name: in.OpponentName, Manual: true}, challenger.Level)
			adj = economy.AdjustStake(challenger.Level, est.Level, 0)
			match.OpponentLevel = est.Level
			match.Category = string(adj.Category)
			// Nobody else can accept a manual match; it starts accepted.
			match.Status = models.MatchAccepted
			if err := tx.Create(&match).Error; err != nil {
				return errors.Wrap(err, "create match")
			}
			_, err := eco.SpendHP(ctx, challengerID, economy.HPCostMatch)
			return err
		}

		var profiles int64
		if err := tx.Model(&models.PlayerProfile{}).Where("user_id = ?", in.OpponentID).Count(&profiles).Error; err != nil {
			return errors.Wrap(err, "load opponent profile")
		}
		if profiles == 0 {
			return ErrNotFound
		}
		opponent, err := eco.ensureProgress(tx, in.OpponentID)
		if err != nil {
			return err
		}
		adj = economy.AdjustStake(challenger.Level, opponent.Level, in.Stake)
		if in.Stake > 0 && !adj.Allowed {
			return ErrStakeNotAllowed
		}
		opponentID := in.OpponentID
		match.OpponentID = &opponentID
		match.OpponentLevel = opponent.Level
		match.Category = string(adj.Category)
		match.Stake = adj.AdjustedAmount
		if err := tx.Create(&match).Error; err != nil {
			return errors.Wrap(err, "create match")
		}
		if match.Stake > 0 {
			if _, err := eco.SpendTokens(ctx, challengerID, match.Stake, models.TokenEscrow, "match_escrow", match.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.Logger.Info("match created",
		zap.String("match_id", match.ID), zap.String("challenger_id", challengerID),
		zap.Int64("stake", match.Stake), zap.String("category", match.Category))
	publishFor(ctx, s.Publisher, s.Logger, matchesTable, realtime.EventInsert, match.ID, s.parties(&match)...)
	return &match, &adj, nil
}

// Accept escrows the opponent's stake and charges both players HP.
func (s *MatchService) Accept(ctx context.Context, matchID, userID string) (*models.Match, error) {
	m, err := s.transition(ctx, matchID, models.MatchPending, models.MatchAccepted, func(tx *gorm.DB, m *models.Match) error {
		if m.OpponentID == nil || *m.OpponentID != userID {
			return ErrForbidden
		}
		eco := s.Economy.WithTx(tx)
		if m.Stake > 0 {
			if _, err := eco.SpendTokens(ctx, userID, m.Stake, models.TokenEscrow, "match_escrow", m.ID); err != nil {
				return err
			}
		}
		if _, err := eco.SpendHP(ctx, m.ChallengerID, economy.HPCostMatch); err != nil {
			return errors.Wrap(err, "challenger")
		}
		if _, err := eco.SpendHP(ctx, userID, economy.HPCostMatch); err != nil {
			return err
		}
		return nil
	})
	return m, err
}

// Decline refunds the challenger's escrow.
func (s *MatchService) Decline(ctx context.Context, matchID, userID string) (*models.Match, error) {
	return s.transition(ctx, matchID, models.MatchPending, models.MatchDeclined, func(tx *gorm.DB, m *models.Match) error {
		if m.OpponentID == nil || *m.OpponentID != userID {
			return ErrForbidden
		}
		return s.refund(ctx, tx, m, m.ChallengerID)
	})
}

// Cancel withdraws a challenge. Pending matches refund the challenger;
// accepted ones refund both escrows.
func (s *MatchService) Cancel(ctx context.Context, matchID, userID string) (*models.Match, error) {
	m, err := s.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	switch m.Status {
	case models.MatchPending:
		return s.transition(ctx, matchID, models.MatchPending, models.MatchCancelled, func(tx *gorm.DB, m *models.Match) error {
			if m.ChallengerID != userID {
				return ErrForbidden
			}
			return s.refund(ctx, tx, m, m.ChallengerID)
		})
	case models.MatchAccepted:
		return s.transition(ctx, matchID, models.MatchAccepted, models.MatchCancelled, func(tx *gorm.DB, m *models.Match) error {
			if !m.Involves(userID) {
				return ErrForbidden
			}
			if err := s.refund(ctx, tx, m, m.ChallengerID); err != nil {
				return err
			}
			if m.OpponentID != nil {
				return s.refund(ctx, tx, m, *m.OpponentID)
			}
			return nil
		})
	default:
		return nil, invalidState("match is " + string(m.Status))
	}
}

// RecordResult completes an accepted match. The score is read from the
// reporter's side ("6-4, 6-3" means the reporter won).
func (s *MatchService) RecordResult(ctx context.Context, matchID, reporterID, score string) (*MatchResult, error) {
	sets, err := analysis.ParseScore(score)
	if err != nil {
		return nil, invalid(err.Error())
	}

	var (
		result  MatchResult
		awardee []xpGrant
	)
	m, err := s.transition(ctx, matchID, models.MatchAccepted, models.MatchCompleted, func(tx *gorm.DB, m *models.Match) error {
		if !m.Involves(reporterID) {
			return ErrForbidden
		}
		if reporterID != m.ChallengerID {
			sets = flipSets(sets)
		}
		an := analysis.AnalyzeScore(sets)
		if an.Winner == analysis.SideNeutral {
			return invalid("score has no winner")
		}
		result.Analysis = an

		now := utcNow()
		challengerWon := an.Winner == analysis.SidePlayer
		m.Score = score
		m.CompletedAt = &now

		opponentID := ""
		if m.OpponentID != nil {
			opponentID = *m.OpponentID
		}
		winnerID, loserID := m.ChallengerID, opponentID
		winnerLevel, loserLevel := m.ChallengerLevel, m.OpponentLevel
		if !challengerWon {
			winnerID, loserID = opponentID, m.ChallengerID
			winnerLevel, loserLevel = m.OpponentLevel, m.ChallengerLevel
		}
		if winnerID != "" {
			w := winnerID
			m.WinnerID = &w
		}
		result.Reward = economy.CalculateMatchReward(winnerLevel, loserLevel, m.Stake)

		if err := tx.Model(&models.Match{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
			"score":        m.Score,
			"winner_id":    m.WinnerID,
			"completed_at": m.CompletedAt,
		}).Error; err != nil {
			return errors.Wrap(err, "save result")
		}

		eco := s.Economy.WithTx(tx)
		if winnerID != "" && result.Reward.WinnerTokens > 0 {
			if _, err := eco.AwardTokens(ctx, winnerID, result.Reward.WinnerTokens, models.TokenPayout, "match_payout", m.ID); err != nil {
				return err
			}
		}

		for _, uid := range []string{winnerID, loserID} {
			if uid == "" {
				continue
			}
			counters := map[string]int64{"total_matches": 1}
			xp := result.Reward.LoserXP
			if uid == winnerID {
				counters["matches_won"] = 1
				xp = result.Reward.WinnerXP
			}
			if err := bump(tx, uid, counters); err != nil {
				return err
			}
			awardee = append(awardee, xpGrant{userID: uid, xp: xp})
		}
		for _, g := range awardee {
			if _, err := eco.AwardXP(ctx, g.userID, g.xp, "match_"+m.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Match = m
	return &result, nil
}

type xpGrant struct {
	userID string
	xp     int64
}

// transition moves a match between statuses with a guarded update, then runs fn
// on the same transaction. fn errors roll the status change back.
func (s *MatchService) transition(ctx context.Context, matchID string, from, to models.MatchStatus, fn func(tx *gorm.DB, m *models.Match) error) (*models.Match, error) {
	var m models.Match
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", matchID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "load match")
		}
		if m.Status != from {
			return invalidState("match is " + string(m.Status))
		}
		res := tx.Model(&models.Match{}).
			Where("id = ? AND status = ?", matchID, from).
			Update("status", to)
		if res.Error != nil {
			return errors.Wrap(res.Error, "update match status")
		}
		if res.RowsAffected == 0 {
			return invalidState("match changed concurrently")
		}
		m.Status = to
		return fn(tx, &m)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("match transitioned",
		zap.String("match_id", m.ID), zap.String("from", string(from)), zap.String("to", string(to)))
	publishFor(ctx, s.Publisher, s.Logger, matchesTable, realtime.EventUpdate, m.ID, s.parties(&m)...)
	return &m, nil
}

func (s *MatchService) refund(ctx context.Context, tx *gorm.DB, m *models.Match, userID string) error {
	if m.Stake <= 0 {
		return nil
	}
	_, err := s.Economy.WithTx(tx).AwardTokens(ctx, userID, m.Stake, models.TokenRefund, "match_refund", m.ID)
	return err
}

func (s *MatchService) parties(m *models.Match) []string {
	ids := []string{m.ChallengerID}
	if m.OpponentID != nil {
		ids = append(ids, *m.OpponentID)
	}
	return ids
}

func flipSets(sets []analysis.SetScore) []analysis.SetScore {
	out := make([]analysis.SetScore, len(sets))
	for i, s := range sets {
		s.Player, s.Opponent = s.Opponent, s.Player
		out[i] = s
	}
	return out
}
