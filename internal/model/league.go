package model

// League is the reward bracket derived from xp.
type League string

const (
	LeagueBronze League = "Bronze"
	LeagueSilver League = "Silver"
	LeagueGold   League = "Gold"
)

// Tier orders leagues: Bronze=1, Silver=2, Gold=3. Unknown leagues are 0.
func (l League) Tier() int {
	switch l {
	case LeagueBronze:
		return 1
	case LeagueSilver:
		return 2
	case LeagueGold:
		return 3
	default:
		return 0
	}
}

func (l League) Valid() bool {
	return l.Tier() > 0
}

// LeagueThresholds はリーグ昇格に必要なXPの下限
type LeagueThresholds struct {
	Silver int
	Gold   int
}

var DefaultLeagueThresholds = LeagueThresholds{Silver: 100, Gold: 500}

// LeagueFor computes the league for xp from scratch.
func (t LeagueThresholds) LeagueFor(xp int) League {
	switch {
	case xp >= t.Gold:
		return LeagueGold
	case xp >= t.Silver:
		return LeagueSilver
	default:
		return LeagueBronze
	}
}
