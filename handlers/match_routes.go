package handlers

import (
	"context"

	"courtside/analysis"
	"courtside/economy"
	"courtside/middleware"
	"courtside/models"
	"courtside/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMatchRoutes(r fiber.Router, matches *services.MatchService) {
	r.Post("/matches", func(c *fiber.Ctx) error {
		var in services.ChallengeInput
		if err := parseBody(c, &in); err != nil {
			return respondError(c, err)
		}
		m, stake, err := matches.Challenge(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"match": m, "stake": stake})
	})

	r.Get("/matches", func(c *fiber.Ctx) error {
		out, err := matches.List(c.UserContext(), middleware.UserID(c), c.Query("status"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	r.Get("/matches/:id", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		m, err := matches.Get(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		if !m.Involves(middleware.UserID(c)) {
			return respondError(c, services.ErrForbidden)
		}
		return c.JSON(m)
	})

	transitions := map[string]func(context.Context, string, string) (*models.Match, error){
		"accept":  matches.Accept,
		"decline": matches.Decline,
		"cancel":  matches.Cancel,
	}
	for action, fn := range transitions {
		r.Post("/matches/:id/"+action, func(c *fiber.Ctx) error {
			id, err := idParam(c, "id")
			if err != nil {
				return respondError(c, err)
			}
			m, err := fn(c.UserContext(), id, middleware.UserID(c))
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(m)
		})
	}

	r.Post("/matches/:id/result", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		var req struct {
			Score string `json:"score"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		res, err := matches.RecordResult(c.UserContext(), id, middleware.UserID(c), req.Score)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})
}

// SetupAnalysisRoutes serves the pure calculators: stake preview, level lookup
// and the match analysis heuristics.
func SetupAnalysisRoutes(r fiber.Router, opponents analysis.OpponentAnalyzer) {
	r.Post("/economy/stake-preview", func(c *fiber.Ctx) error {
		var req struct {
			PlayerLevel   int   `json:"player_level"`
			OpponentLevel int   `json:"opponent_level"`
			Amount        int64 `json:"amount"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.PlayerLevel < 1 || req.OpponentLevel < 1 || req.Amount < 0 {
			return badRequest(c, "levels must be >= 1 and amount >= 0")
		}
		return c.JSON(economy.AdjustStake(req.PlayerLevel, req.OpponentLevel, req.Amount))
	})

	r.Get("/economy/level", func(c *fiber.Ctx) error {
		xp := int64(queryInt(c, "xp", -1))
		if xp < 0 {
			return badRequest(c, "xp must be a non-negative integer")
		}
		level := economy.CalculateLevelFromXP(xp)
		return c.JSON(fiber.Map{
			"level":             level,
			"xp_for_next_level": economy.CalculateXPForLevel(level + 1),
			"progress":          economy.GetXPProgress(xp, level),
		})
	})

	r.Post("/analysis/momentum", func(c *fiber.Ctx) error {
		var req struct {
			Events []analysis.PointEvent `json:"events"`
			Window int                   `json:"window"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.Window <= 0 {
			req.Window = analysis.DefaultMomentumWindow
		}
		return c.JSON(analysis.AnalyzeMomentum(req.Events, req.Window))
	})

	r.Post("/analysis/score", func(c *fiber.Ctx) error {
		var req struct {
			Score string `json:"score"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		sets, err := analysis.ParseScore(req.Score)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"sets": sets, "analysis": analysis.AnalyzeScore(sets)})
	})

	r.Post("/analysis/opponent", func(c *fiber.Ctx) error {
		var req struct {
			Opponent    analysis.OpponentRef `json:"opponent"`
			PlayerLevel int                  `json:"player_level"`
		}
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.PlayerLevel < 1 {
			req.PlayerLevel = 1
			if opponents.Lookup != nil {
				if me, err := opponents.Lookup.LookupOpponent(c.UserContext(), middleware.UserID(c)); err == nil && me != nil {
					req.PlayerLevel = me.Level
				}
			}
		}
		return c.JSON(opponents.Analyze(c.UserContext(), req.Opponent, req.PlayerLevel))
	})
}
