package domain

import "time"

// RulesetSnapshot is the last ruleset text fetched successfully, kept so the
// service can start when every live source is unavailable.
type RulesetSnapshot struct {
	Text        string
	Source      string
	Version     uint64
	UpdatedUnix int64
}

// Updated returns the time the snapshot was saved.
func (s RulesetSnapshot) Updated() time.Time {
	return time.Unix(s.UpdatedUnix, 0).UTC()
}
