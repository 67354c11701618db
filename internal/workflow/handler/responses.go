package handler

import (
	"encoding/hex"
	"time"

	"chrona/internal/auditlog"
	"chrona/internal/workflow/machine"
	"chrona/internal/workflow/models"
)

// SubjectResponse is the wire shape of a workflow subject.
type SubjectResponse struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	OwnerID    string     `json:"owner_id"`
	OrgID      string     `json:"org_id"`
	TeamID     string     `json:"team_id,omitempty"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Category   string     `json:"category,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Status     string     `json:"status"`
	ApproverID string     `json:"approver_id,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Version    int64      `json:"version"`

	// AllowedActions lists the statuses the subject can still move to, so
	// clients render action buttons without re-encoding the status graph.
	AllowedActions []string `json:"allowed_actions"`
}

// FromSubject converts a subject to its wire shape.
func FromSubject(s *models.Subject) SubjectResponse {
	resp := SubjectResponse{
		ID:         s.ID.String(),
		Kind:       string(s.Kind),
		OwnerID:    s.OwnerID.String(),
		OrgID:      s.OrgID.String(),
		StartDate:  s.StartDate.Format(dateLayout),
		EndDate:    s.EndDate.Format(dateLayout),
		Category:   s.Category,
		Notes:      s.Notes,
		Status:     string(s.Status),
		ApprovedAt: s.ApprovedAt,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		Version:    s.Version,
	}
	if s.TeamID != nil {
		resp.TeamID = s.TeamID.String()
	}
	if s.ApproverID != nil {
		resp.ApproverID = s.ApproverID.String()
	}
	targets := machine.Targets(s.Status)
	resp.AllowedActions = make([]string, 0, len(targets))
	for _, to := range targets {
		resp.AllowedActions = append(resp.AllowedActions, string(to))
	}
	return resp
}

// EntryResponse is the wire shape of a workflow log entry.
type EntryResponse struct {
	ID        string    `json:"id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ActorID   string    `json:"actor_id"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
}

// FromEntry converts a log entry to its wire shape. Hashes travel as hex.
func FromEntry(e auditlog.Entry) EntryResponse {
	return EntryResponse{
		ID:        e.ID.String(),
		OldStatus: string(e.OldStatus),
		NewStatus: string(e.NewStatus),
		ActorID:   e.ActorID.String(),
		Comment:   e.Comment,
		Timestamp: e.Timestamp,
		Hash:      hex.EncodeToString(e.Hash),
	}
}

// HistoryResponse is the wire shape of GET /workflow/{kind}/{id}/history.
type HistoryResponse struct {
	SubjectID string          `json:"subject_id"`
	Kind      string          `json:"kind"`
	Entries   []EntryResponse `json:"entries"`
}

// TransitionResponse pairs the updated subject with the appended log entry.
type TransitionResponse struct {
	Subject SubjectResponse `json:"subject"`
	Entry   EntryResponse   `json:"entry"`
}
