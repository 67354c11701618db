package auditlog

import (
	"context"
	"log/slog"

	"chrona/internal/workflow/models"
	id "chrona/pkg/domain"
	"chrona/pkg/requestcontext"
)

// SecurityLog records authorization denials. It is a separate stream from the
// workflow log: denials never create workflow entries, but they matter for
// forensics, so each one carries caller IP and device from the request context.
type SecurityLog struct {
	logger *slog.Logger
}

func NewSecurityLog(logger *slog.Logger) *SecurityLog {
	return &SecurityLog{logger: logger}
}

// Denied emits one structured record per authorization denial.
func (s *SecurityLog) Denied(ctx context.Context, actorID id.UserID, kind models.Kind, subjectID id.SubjectID, from, to models.Status, reason string) {
	s.logger.WarnContext(ctx, "transition denied",
		"actor_id", actorID.String(),
		"subject_kind", string(kind),
		"subject_id", subjectID.String(),
		"from_status", string(from),
		"to_status", string(to),
		"reason", reason,
		"client_ip", requestcontext.ClientIP(ctx),
		"device", requestcontext.UserAgent(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}
