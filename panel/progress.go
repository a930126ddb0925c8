package panel

// ProgressTier is the color bucket of the completion bar.
type ProgressTier string

const (
	TierLow      ProgressTier = "low"      // <= 25%
	TierMid      ProgressTier = "mid"      // 26-75%
	TierHigh     ProgressTier = "high"     // 76-99%
	TierComplete ProgressTier = "complete" // 100%
)

// Progress is the completion of the unlock set against the catalog.
type Progress struct {
	Unlocked int
	Total    int
	Percent  int
	Tier     ProgressTier
}

// ComputeProgress buckets unlocked/total into a tier. Percent is floored so the
// complete tier is only reached with every milestone unlocked.
func ComputeProgress(unlocked, total int) Progress {
	p := Progress{Unlocked: unlocked, Total: total}
	if total > 0 && unlocked > 0 {
		p.Percent = unlocked * 100 / total
	}
	p.Percent = min(max(p.Percent, 0), 100)
	p.Tier = tierFor(p.Percent)
	return p
}

func tierFor(percent int) ProgressTier {
	switch {
	case percent >= 100:
		return TierComplete
	case percent > 75:
		return TierHigh
	case percent > 25:
		return TierMid
	default:
		return TierLow
	}
}
