package services

import (
	"context"
	"time"

	"courtside/economy"
	"courtside/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const QuizXPPerCorrect = 10

type AcademyService struct {
	DB          *gorm.DB
	Economy     *Economy
	PassPercent int
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewAcademyService(db *gorm.DB, eco *Economy, passPercent int, logger *zap.Logger) *AcademyService {
	return &AcademyService{DB: db, Economy: eco, PassPercent: passPercent, Logger: logger, Now: utcNow}
}

type QuestionReview struct {
	QuestionID   string `json:"question_id"`
	Chosen       int    `json:"chosen"`
	CorrectIndex int    `json:"correct_index"`
	Correct      bool   `json:"correct"`
	Explanation  string `json:"explanation,omitempty"`
}

type QuizResult struct {
	Attempt *models.QuizAttempt `json:"attempt"`
	Review  []QuestionReview    `json:"review"`
	Award   *XPAward            `json:"award,omitempty"`
}

var defaultQuestions = []models.QuizQuestion{
	{Topic: "rules", Prompt: "How many points win a standard tiebreak?", Options: []string{"5", "7, by two", "10", "6, by two"}, CorrectIndex: 1, Explanation: "First to 7 with a two point margin."},
	{Topic: "rules", Prompt: "What is the score called at 40-40?", Options: []string{"Advantage", "Love", "Deuce", "Let"}, CorrectIndex: 2},
	{Topic: "rules", Prompt: "A serve that clips the net and lands in the correct box is...", Options: []string{"A fault", "A let", "An ace", "In play"}, CorrectIndex: 1},
	{Topic: "rules", Prompt: "How many games does a set normally need?", Options: []string{"4", "5", "6, by two", "8"}, CorrectIndex: 2},
	{Topic: "tactics", Prompt: "Against a net rusher, the best reply is usually...", Options: []string{"A drop shot", "A lob or a low passing shot", "A moonball rally", "A second serve"}, CorrectIndex: 1},
	{Topic: "tactics", Prompt: "Where should you usually aim a wide serve on the deuce side?", Options: []string{"Down the T", "At the body", "Out wide to open the court", "Into the net"}, CorrectIndex: 2},
	{Topic: "tactics", Prompt: "Crosscourt rallies are safer because...", Options: []string{"The net is lower in the middle and the court is longer", "The ball is faster", "The wind helps", "They are not safer"}, CorrectIndex: 0},
	{Topic: "technique", Prompt: "Which grip is most common for the serve?", Options: []string{"Western", "Continental", "Semi-western", "Eastern backhand"}, CorrectIndex: 1},
	{Topic: "technique", Prompt: "The split step is timed to land when...", Options: []string{"The opponent hits the ball", "The ball bounces on your side", "You finish your swing", "The point starts"}, CorrectIndex: 0},
	{Topic: "technique", Prompt: "A topspin forehand brushes the ball...", Options: []string{"High to low", "Low to high", "Flat", "Side to side only"}, CorrectIndex: 1},
}

// SeedQuestions loads the built-in question bank into an empty table.
func (s *AcademyService) SeedQuestions(ctx context.Context) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.QuizQuestion{}).Count(&n).Error; err != nil {
		return errors.Wrap(err, "count questions")
	}
	if n > 0 {
		return nil
	}
	bank := make([]models.QuizQuestion, len(defaultQuestions))
	copy(bank, defaultQuestions)
	return errors.Wrap(s.DB.WithContext(ctx).Create(&bank).Error, "seed questions")
}

// Questions returns up to n random questions for topic. Answers are never serialized.
func (s *AcademyService) Questions(ctx context.Context, topic string, n int) ([]models.QuizQuestion, error) {
	if topic == "" {
		return nil, invalid("topic required")
	}
	if n < 1 || n > 20 {
		n = 5
	}
	var out []models.QuizQuestion
	err := s.DB.WithContext(ctx).
		Where("topic = ?", topic).
		Order("RANDOM()").
		Limit(n).
		Find(&out).Error
	return out, errors.Wrap(err, "load questions")
}

// Submit scores a quiz. A pass earns XP once per topic per day; later passes
// are recorded without XP.
func (s *AcademyService) Submit(ctx context.Context, userID, topic string, answers map[string]int) (*QuizResult, error) {
	if topic == "" || len(answers) == 0 {
		return nil, invalid("topic and answers required")
	}
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}

	var questions []models.QuizQuestion
	if err := s.DB.WithContext(ctx).Where("topic = ? AND id IN ?", topic, ids).Find(&questions).Error; err != nil {
		return nil, errors.Wrap(err, "load questions")
	}
	if len(questions) != len(answers) {
		return nil, invalid("answers reference unknown questions")
	}

	result := &QuizResult{}
	correct := 0
	for _, q := range questions {
		chosen := answers[q.ID]
		ok := chosen == q.CorrectIndex
		if ok {
			correct++
		}
		result.Review = append(result.Review, QuestionReview{
			QuestionID:   q.ID,
			Chosen:       chosen,
			CorrectIndex: q.CorrectIndex,
			Correct:      ok,
			Explanation:  q.Explanation,
		})
	}
	total := len(questions)
	passed := correct*100 >= s.PassPercent*total

	attempt := models.QuizAttempt{UserID: userID, Topic: topic, Score: correct, Total: total, Passed: passed}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eco := s.Economy.WithTx(tx)
		if _, err := eco.SpendHP(ctx, userID, economy.HPCostQuiz); err != nil {
			return err
		}
		if passed {
			// The unique reward key decides which passing attempt of the day pays.
			day := s.Now().UTC().Format("2006-01-02")
			attempt.RewardDay = &day
			attempt.XPAwarded = int64(correct * QuizXPPerCorrect)
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&attempt)
			if res.Error != nil {
				return errors.Wrap(res.Error, "record attempt")
			}
			if res.RowsAffected == 0 {
				attempt.RewardDay = nil
				attempt.XPAwarded = 0
				if err := tx.Create(&attempt).Error; err != nil {
					return errors.Wrap(err, "record attempt")
				}
			}
		} else if err := tx.Create(&attempt).Error; err != nil {
			return errors.Wrap(err, "record attempt")
		}
		if attempt.XPAwarded > 0 {
			if err := bump(tx, userID, map[string]int64{"quizzes_passed": 1}); err != nil {
				return err
			}
			award, err := eco.AwardXP(ctx, userID, attempt.XPAwarded, "quiz_"+topic)
			if err != nil {
				return err
			}
			result.Award = award
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Attempt = &attempt
	s.Logger.Info("quiz submitted",
		zap.String("user_id", userID), zap.String("topic", topic),
		zap.Int("score", correct), zap.Int("total", total), zap.Bool("passed", passed))
	return result, nil
}
