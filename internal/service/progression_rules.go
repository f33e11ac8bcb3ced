package service

import (
	"keep_up_backend/internal/model"
)

// advanceStreak returns the streak after activity on today.
// Same day keeps it, the next day extends it, anything else restarts at 1.
// A last date in the future (clock skew) counts as the same day.
func advanceStreak(streak int, last, today model.Day) int {
	gap, err := model.DaysBetween(last, today)
	if err != nil {
		// 保存値が壊れている場合はリセット扱い
		return 1
	}
	if gap < 0 {
		gap = 0
	}
	switch gap {
	case 0:
		if streak < 1 {
			return 1
		}
		return streak
	case 1:
		return streak + 1
	default:
		return 1
	}
}

// applyPoints is the pure addPoints transition. It mutates p and returns
// ErrCooldownActive without touching p when category was already rewarded today.
func applyPoints(p *model.UserProgress, points int, category model.Category, today model.Day, th model.LeagueThresholds) error {
	cooldowns, err := p.Cooldowns()
	if err != nil {
		return err
	}
	if last, ok := cooldowns[category]; ok && last >= today {
		return model.ErrCooldownActive
	}

	p.XP += points
	p.League = th.LeagueFor(p.XP)
	p.Streak = advanceStreak(p.Streak, p.LastActiveDate, today)
	p.LastActiveDate = today
	cooldowns[category] = today
	return p.SetCooldowns(cooldowns)
}

// restoreStreak is the pure streak-restore transition. It reports whether p
// changed. Gaps of 2-3 days keep the streak; longer gaps restart it. In both
// cases the user is treated as active yesterday so today's play extends it.
func restoreStreak(p *model.UserProgress, today model.Day) bool {
	gap, err := model.DaysBetween(p.LastActiveDate, today)
	if err != nil {
		p.Streak = 1
		p.LastActiveDate = today.AddDays(-1)
		return true
	}
	switch {
	case gap <= 1:
		return false
	case gap <= 3:
		p.LastActiveDate = today.AddDays(-1)
		return true
	default:
		p.Streak = 1
		p.LastActiveDate = today.AddDays(-1)
		return true
	}
}
