package vote

import "rentshield/issue"

// DefaultThreshold is the minimum number of votes, abstains included, that
// must be on the ledger before a verdict is computed.
const DefaultThreshold = 10

// QuorumConfig parameterises verdict computation.
type QuorumConfig struct {
	// Threshold is the minimum total vote count required to conclude.
	Threshold int
	// TieBreak is the verdict applied when the non-abstain counts are
	// exactly equal. The default is NoQuorum, which routes the issue to
	// admin escalation since neither side prevailed.
	TieBreak issue.Verdict
}

func DefaultQuorumConfig() QuorumConfig {
	return QuorumConfig{
		Threshold: DefaultThreshold,
		TieBreak:  issue.VerdictNoQuorum,
	}
}

// Outcome is the evaluator's decision for one tally.
type Outcome struct {
	Reached bool
	Verdict issue.Verdict
}

// EvaluateQuorum decides whether a tally concludes the review and with which
// verdict. It is pure: same tally and config, same outcome. Below the
// threshold nothing is decidable and the caller simply waits; at or above it
// the larger non-abstain side wins, and an exact tie resolves per TieBreak.
func EvaluateQuorum(t Tally, cfg QuorumConfig) Outcome {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if t.Total < cfg.Threshold {
		return Outcome{}
	}

	switch {
	case t.FavorTenant > t.FavorLandlord:
		return Outcome{Reached: true, Verdict: issue.VerdictFavorTenant}
	case t.FavorLandlord > t.FavorTenant:
		return Outcome{Reached: true, Verdict: issue.VerdictFavorLandlord}
	default:
		tie := cfg.TieBreak
		if tie == "" {
			tie = issue.VerdictNoQuorum
		}
		return Outcome{Reached: true, Verdict: tie}
	}
}
