package handler

import (
	"strings"
	"time"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	dErrors "chrona/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// SubmitRequest is the HTTP request body for POST /workflow/{kind}.
type SubmitRequest struct {
	OrgID     string `json:"org_id"`
	TeamID    string `json:"team_id,omitempty"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Category  string `json:"category,omitempty"`
	Notes     string `json:"notes,omitempty"`

	// Parsed values (populated by Validate)
	parsedOrgID  id.OrgID
	parsedTeamID *id.TeamID
	parsedStart  time.Time
	parsedEnd    time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.OrgID = strings.TrimSpace(r.OrgID)
	if r.OrgID == "" {
		return dErrors.New(dErrors.CodeValidation, "org_id is required")
	}
	orgID, err := id.ParseOrgID(r.OrgID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID

	r.TeamID = strings.TrimSpace(r.TeamID)
	if r.TeamID != "" {
		teamID, err := id.ParseTeamID(r.TeamID)
		if err != nil {
			return err
		}
		r.parsedTeamID = &teamID
	}

	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "start_date must be YYYY-MM-DD")
	}
	r.parsedStart = start

	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "end_date must be YYYY-MM-DD")
	}
	r.parsedEnd = end

	if end.Before(start) {
		return dErrors.New(dErrors.CodeValidation, "end_date must not precede start_date")
	}

	if len(r.Notes) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 2000 characters")
	}
	return nil
}

// ParsedOrgID returns the validated organization ID.
func (r *SubmitRequest) ParsedOrgID() id.OrgID { return r.parsedOrgID }

// ParsedTeamID returns the validated team ID, or nil when not scoped.
func (r *SubmitRequest) ParsedTeamID() *id.TeamID { return r.parsedTeamID }

// ParsedDates returns the validated date range.
func (r *SubmitRequest) ParsedDates() (time.Time, time.Time) { return r.parsedStart, r.parsedEnd }

// TransitionRequest is the HTTP request body for
// POST /workflow/{kind}/{id}/transitions.
type TransitionRequest struct {
	To      string `json:"to"`
	Comment string `json:"comment,omitempty"`

	parsedTo models.Status
}

// Validate validates and parses the request.
func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.To = strings.TrimSpace(r.To)
	if r.To == "" {
		return dErrors.New(dErrors.CodeValidation, "to is required")
	}
	to, err := models.ParseStatus(r.To)
	if err != nil {
		return err
	}
	r.parsedTo = to

	if len(r.Comment) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "comment must be at most 1000 characters")
	}
	return nil
}

// ParsedTo returns the validated target status.
func (r *TransitionRequest) ParsedTo() models.Status { return r.parsedTo }
