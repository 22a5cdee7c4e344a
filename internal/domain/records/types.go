package records

import "strings"

type RecordType string

const (
	TypeVaccination RecordType = "vaccination"
	TypeMedication  RecordType = "medication"
	TypeCheckup     RecordType = "checkup"
	TypeSurgery     RecordType = "surgery"
	TypeLabResult   RecordType = "lab_result"
	TypeOther       RecordType = "other"
)

var allTypes = []RecordType{TypeVaccination, TypeMedication, TypeCheckup, TypeSurgery, TypeLabResult, TypeOther}

func ParseRecordType(s string) (RecordType, bool) {
	t := RecordType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)

const DefaultCurrency = "USD"
