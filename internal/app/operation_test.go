package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	start := time.Date(2024, 6, 15, 21, 30, 45, 0, time.FixedZone("WIB", 7*3600))

	op := NewOperation("sync", start)

	if op.Name != "sync" {
		t.Errorf("Name = %q, want %q", op.Name, "sync")
	}
	if op.ID != "20240615T143045Z" {
		t.Errorf("ID = %q, want %q", op.ID, "20240615T143045Z")
	}
	if !op.Succeeded() || op.Status != "success" {
		t.Errorf("Status = %q, want success", op.Status)
	}
}

func TestOperation_Fail(t *testing.T) {
	tests := []struct {
		name       string
		errs       []error
		wantStatus string
		wantErr    string
	}{
		{name: "nil error keeps success", errs: []error{nil}, wantStatus: "success"},
		{name: "first error recorded", errs: []error{errors.New("first"), errors.New("second")}, wantStatus: "error", wantErr: "first"},
		{name: "nil after error keeps failure", errs: []error{errors.New("boom"), nil}, wantStatus: "error", wantErr: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("add", time.Now())
			for _, err := range tt.errs {
				op.Fail(err)
			}

			if op.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", op.Status, tt.wantStatus)
			}
			if tt.wantErr == "" && op.Err != nil {
				t.Errorf("Err = %v, want nil", op.Err)
			}
			if tt.wantErr != "" && (op.Err == nil || op.Err.Error() != tt.wantErr) {
				t.Errorf("Err = %v, want %s", op.Err, tt.wantErr)
			}
		})
	}
}
