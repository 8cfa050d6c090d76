package model

import (
	"strings"
	"time"
)

// LocalIDPrefix marks ids synthesized by the client while offline.
// Server ids never carry it, so the two id spaces stay distinguishable.
const LocalIDPrefix = "offline_"

// Record represents a lecturer profile as stored by the remote service.
type Record struct {
	ID                 string    `json:"id"`
	NIDN               string    `json:"nidn"`
	Name               string    `json:"name"`
	Degree             string    `json:"degree"`
	ScopusID           string    `json:"scopus_id,omitempty"`
	FunctionalPosition string    `json:"functional_position"`
	Rank               string    `json:"rank"`
	LastEducation      string    `json:"last_education"`
	SerdosStatus       string    `json:"serdos_status"`
	CreatedAt          time.Time `json:"created_at"`
}

// RecordInput holds the scalar attributes a caller supplies on create or update.
type RecordInput struct {
	NIDN               string `json:"nidn"`
	Name               string `json:"name"`
	Degree             string `json:"degree"`
	ScopusID           string `json:"scopus_id,omitempty"`
	FunctionalPosition string `json:"functional_position"`
	Rank               string `json:"rank"`
	LastEducation      string `json:"last_education"`
	SerdosStatus       string `json:"serdos_status"`
}

// Input returns the record's attributes without id and creation time.
func (r Record) Input() RecordInput {
	return RecordInput{
		NIDN:               r.NIDN,
		Name:               r.Name,
		Degree:             r.Degree,
		ScopusID:           r.ScopusID,
		FunctionalPosition: r.FunctionalPosition,
		Rank:               r.Rank,
		LastEducation:      r.LastEducation,
		SerdosStatus:       r.SerdosStatus,
	}
}

// Apply overwrites the record's attributes with in. ID and CreatedAt are kept.
func (r Record) Apply(in RecordInput) Record {
	r.NIDN = in.NIDN
	r.Name = in.Name
	r.Degree = in.Degree
	r.ScopusID = in.ScopusID
	r.FunctionalPosition = in.FunctionalPosition
	r.Rank = in.Rank
	r.LastEducation = in.LastEducation
	r.SerdosStatus = in.SerdosStatus
	return r
}

// NewRecord builds a record from input with the given id and creation time.
func NewRecord(id string, in RecordInput, createdAt time.Time) Record {
	return Record{ID: id, CreatedAt: createdAt}.Apply(in)
}

// IsLocalID reports whether id was synthesized by the client.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// ActionKind identifies the mutation a PendingAction replays.
type ActionKind string

const (
	ActionCreate ActionKind = "create"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
)

// PendingAction is one mutation accepted while offline and not yet confirmed
// against the remote service. Actions are immutable once appended to the log.
type PendingAction struct {
	ID        string       `json:"id"`
	Kind      ActionKind   `json:"type"`
	RecordID  string       `json:"record_id,omitempty"` // target id; the client id for creates
	Data      *RecordInput `json:"data,omitempty"`      // full payload for create and update
	Timestamp time.Time    `json:"timestamp"`
}
