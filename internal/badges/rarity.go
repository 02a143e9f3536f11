package badges

// Rarity grades how cleanly a module was finished.
type Rarity string

const (
	RarityBronze   Rarity = "bronze"
	RaritySilver   Rarity = "silver"
	RarityGold     Rarity = "gold"
	RarityPlatinum Rarity = "platinum"
)

// AllRarities returns all rarities in order from lowest to highest.
func AllRarities() []Rarity {
	return []Rarity{RarityBronze, RaritySilver, RarityGold, RarityPlatinum}
}

// DisplayName returns a human-readable label for the rarity.
func (r Rarity) DisplayName() string {
	switch r {
	case RarityBronze:
		return "Bronze"
	case RaritySilver:
		return "Silver"
	case RarityGold:
		return "Gold"
	case RarityPlatinum:
		return "Platinum"
	default:
		return string(r)
	}
}

// RarityFor grades a finished module. Platinum needs every task solved on
// the first attempt without hints; gold allows retries but no hints; silver
// allows at most one hint per task on average.
func RarityFor(stats Stats) Rarity {
	switch {
	case stats.HintsUsed == 0 && stats.Attempts <= stats.TotalTasks:
		return RarityPlatinum
	case stats.HintsUsed == 0:
		return RarityGold
	case stats.HintsUsed <= stats.TotalTasks:
		return RaritySilver
	default:
		return RarityBronze
	}
}
