package supervision

import (
	"github.com/internhub/internhub/internal/domain/shared"
)

// TutorAssignedEvent is emitted when an admin assigns a tutor.
type TutorAssignedEvent struct {
	shared.BaseEvent
	AgreementID string `json:"agreement_id"`
	StudentID   string `json:"student_id"`
	TutorID     string `json:"tutor_id"`
}

// Payload implements shared.Event.
func (e TutorAssignedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"supervision_id": e.AggregateId,
		"agreement_id":   e.AgreementID,
		"student_id":     e.StudentID,
		"tutor_id":       e.TutorID,
	}
}

// NewTutorAssignedEvent creates a TutorAssignedEvent.
func NewTutorAssignedEvent(s *Supervision) TutorAssignedEvent {
	return TutorAssignedEvent{
		BaseEvent:   shared.NewBaseEvent(shared.EventTutorAssigned, s.ID),
		AgreementID: s.AgreementID,
		StudentID:   s.StudentID,
		TutorID:     s.TutorID,
	}
}

// ProgressUpdatedEvent is emitted after a tutor update.
type ProgressUpdatedEvent struct {
	shared.BaseEvent
	StudentID string   `json:"student_id"`
	TutorID   string   `json:"tutor_id"`
	Progress  Progress `json:"progress"`
}

// Payload implements shared.Event.
func (e ProgressUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"supervision_id": e.AggregateId,
		"student_id":     e.StudentID,
		"tutor_id":       e.TutorID,
		"progress":       string(e.Progress),
	}
}

// NewProgressUpdatedEvent creates a ProgressUpdatedEvent.
func NewProgressUpdatedEvent(s *Supervision) ProgressUpdatedEvent {
	return ProgressUpdatedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventProgressUpdated, s.ID),
		StudentID: s.StudentID,
		TutorID:   s.TutorID,
		Progress:  s.Progress,
	}
}
