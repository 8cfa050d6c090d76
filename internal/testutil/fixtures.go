package testutil

import "staffsync/internal/model"

// SampleInput returns a valid record input with the given name.
func SampleInput(name string) model.RecordInput {
	return model.RecordInput{
		NIDN:               "0012345678",
		Name:               name,
		Degree:             "Dr., M.Kom.",
		FunctionalPosition: "Lektor",
		Rank:               "Penata (III/c)",
		LastEducation:      "S3",
		SerdosStatus:       "Sudah Sertifikasi",
	}
}
