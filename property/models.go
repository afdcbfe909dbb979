package property

import "time"

// Record captures a rental property a dispute can be filed against.
type Record struct {
	ID         string
	LandlordID string
	Address    string
	CreatedAt  time.Time
}
