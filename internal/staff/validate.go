package staff

import (
	"slices"
	"strings"

	"staffsync/internal/model"
)

// FunctionalPositions lists the accepted academic functional positions.
var FunctionalPositions = []string{
	"Asisten Ahli",
	"Lektor",
	"Lektor Kepala",
	"Guru Besar",
}

// Ranks lists the accepted civil-service ranks.
var Ranks = []string{
	"Penata Muda Tk. I (III/b)",
	"Penata (III/c)",
	"Penata Tk. I (III/d)",
	"Pembina (IV/a)",
	"Pembina Tk. I (IV/b)",
	"Pembina Utama Muda (IV/c)",
	"Pembina Utama Madya (IV/d)",
	"Pembina Utama (IV/e)",
}

// SerdosStatuses lists the accepted lecturer certification statuses.
var SerdosStatuses = []string{
	"Belum Sertifikasi",
	"Sudah Sertifikasi",
	"Dalam Proses",
}

// ValidateInput checks required fields and enumerated values.
// Returns a *ValidationError listing every problem, or nil.
func ValidateInput(in model.RecordInput) error {
	var errs []FieldError

	required := []struct {
		field string
		value string
	}{
		{"nidn", in.NIDN},
		{"name", in.Name},
		{"degree", in.Degree},
		{"functional_position", in.FunctionalPosition},
		{"rank", in.Rank},
		{"last_education", in.LastEducation},
		{"serdos_status", in.SerdosStatus},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Message: "is required"})
		}
	}

	enums := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"functional_position", in.FunctionalPosition, FunctionalPositions},
		{"rank", in.Rank, Ranks},
		{"serdos_status", in.SerdosStatus, SerdosStatuses},
	}
	for _, e := range enums {
		if strings.TrimSpace(e.value) != "" && !slices.Contains(e.allowed, e.value) {
			errs = append(errs, FieldError{Field: e.field, Message: "unknown value " + e.value})
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
