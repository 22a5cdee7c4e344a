package details

import (
	"errors"
	"strings"
	"time"
)

type Checkup struct {
	Reason          string     `json:"reason"`
	Findings        string     `json:"findings,omitempty"`
	Recommendations string     `json:"recommendations,omitempty"`
	FollowUpDate    *time.Time `json:"follow_up_date,omitempty"`
}

func (c Checkup) Validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return errors.New("checkup.reason is required")
	}
	return nil
}
