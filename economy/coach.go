package economy

// CoachReward is what a coach earns from one piece of player feedback.
type CoachReward struct {
	CRP int64 `json:"crp"`
	CXP int64 `json:"cxp"`
	CTK int64 `json:"ctk"`
}

// CoachFeedbackReward maps a 1-5 rating onto coach reputation, experience and tokens.
// A one star rating costs reputation.
func CoachFeedbackReward(rating int) CoachReward {
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	r := CoachReward{
		CRP: int64(rating * 2),
		CXP: int64(rating * 5),
	}
	if rating == 1 {
		r.CRP = -2
	}
	if rating >= 4 {
		r.CTK = 5
	}
	return r
}

// CoachLevel uses the player curve over CXP.
func CoachLevel(cxp int64) int {
	return CalculateLevelFromXP(cxp)
}
