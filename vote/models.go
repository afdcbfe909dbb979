package vote

import "time"

// Choice is a juror's ballot option. Abstain counts toward the quorum
// threshold but never toward either side of the verdict.
type Choice string

const (
	ChoiceFavorTenant   Choice = "favor_tenant"
	ChoiceFavorLandlord Choice = "favor_landlord"
	ChoiceAbstain       Choice = "abstain"
)

// Valid reports whether c is one of the three ballot options.
func (c Choice) Valid() bool {
	switch c {
	case ChoiceFavorTenant, ChoiceFavorLandlord, ChoiceAbstain:
		return true
	default:
		return false
	}
}

// Record mirrors the votes table. Identity is the (IssueID, JurorID) pair;
// a cast vote is immutable.
type Record struct {
	IssueID   string
	JurorID   string
	Choice    Choice
	Reasoning *string
	CastAt    time.Time
}

// Tally is the aggregate count for one issue. Total includes abstains.
type Tally struct {
	FavorTenant   int
	FavorLandlord int
	Abstain       int
	Total         int
}
