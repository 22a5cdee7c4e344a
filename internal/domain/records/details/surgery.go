package details

import (
	"errors"
	"strings"
)

type Surgery struct {
	Procedure     string `json:"procedure"`
	PreOpNotes    string `json:"pre_op_notes,omitempty"`
	PostOpNotes   string `json:"post_op_notes,omitempty"`
	Complications string `json:"complications,omitempty"`
	Recovery      string `json:"recovery,omitempty"`
}

func (s Surgery) Validate() error {
	if strings.TrimSpace(s.Procedure) == "" {
		return errors.New("surgery.procedure is required")
	}
	return nil
}
