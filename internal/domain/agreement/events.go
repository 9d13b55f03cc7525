package agreement

import (
	"github.com/internhub/internhub/internal/domain/shared"
)

// CreatedEvent is emitted when an agreement is provisioned for an accepted
// application.
type CreatedEvent struct {
	shared.BaseEvent
	ApplicationID string `json:"application_id"`
	StudentID     string `json:"student_id"`
	CompanyID     string `json:"company_id"`
}

// Payload implements shared.Event.
func (e CreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"agreement_id":   e.AggregateId,
		"application_id": e.ApplicationID,
		"student_id":     e.StudentID,
		"company_id":     e.CompanyID,
	}
}

// NewCreatedEvent creates a CreatedEvent.
func NewCreatedEvent(a *Agreement) CreatedEvent {
	return CreatedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventAgreementCreated, a.ID),
		ApplicationID: a.ApplicationID,
		StudentID:     a.StudentID,
		CompanyID:     a.CompanyID,
	}
}

// SignedEvent is emitted for every individual signature.
type SignedEvent struct {
	shared.BaseEvent
	Party     Party  `json:"party"`
	Status    Status `json:"status"`
	StudentID string `json:"student_id"`
	CompanyID string `json:"company_id"`
}

// Payload implements shared.Event.
func (e SignedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"agreement_id": e.AggregateId,
		"party":        string(e.Party),
		"status":       string(e.Status),
		"student_id":   e.StudentID,
		"company_id":   e.CompanyID,
	}
}

// NewSignedEvent creates a SignedEvent.
func NewSignedEvent(a *Agreement, p Party) SignedEvent {
	return SignedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventAgreementSigned, a.ID),
		Party:     p,
		Status:    a.Status,
		StudentID: a.StudentID,
		CompanyID: a.CompanyID,
	}
}

// FullySignedEvent is emitted once, when the last signature lands.
type FullySignedEvent struct {
	shared.BaseEvent
	StudentID string `json:"student_id"`
	CompanyID string `json:"company_id"`
}

// Payload implements shared.Event.
func (e FullySignedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"agreement_id": e.AggregateId,
		"student_id":   e.StudentID,
		"company_id":   e.CompanyID,
	}
}

// NewFullySignedEvent creates a FullySignedEvent.
func NewFullySignedEvent(a *Agreement) FullySignedEvent {
	return FullySignedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventAgreementFullySigned, a.ID),
		StudentID: a.StudentID,
		CompanyID: a.CompanyID,
	}
}

// DocumentGeneratedEvent is emitted when a document reference is stored.
type DocumentGeneratedEvent struct {
	shared.BaseEvent
	DocumentRef string `json:"document_ref"`
}

// Payload implements shared.Event.
func (e DocumentGeneratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"agreement_id": e.AggregateId,
		"document_ref": e.DocumentRef,
	}
}

// NewDocumentGeneratedEvent creates a DocumentGeneratedEvent.
func NewDocumentGeneratedEvent(agreementID, ref string) DocumentGeneratedEvent {
	return DocumentGeneratedEvent{
		BaseEvent:   shared.NewBaseEvent(shared.EventDocumentGenerated, agreementID),
		DocumentRef: ref,
	}
}

// DocumentRenderFailedEvent is emitted when rendering a signed agreement
// fails. The retry handler consumes it.
type DocumentRenderFailedEvent struct {
	shared.BaseEvent
	Reason string `json:"reason"`
}

// Payload implements shared.Event.
func (e DocumentRenderFailedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"agreement_id": e.AggregateId,
		"reason":       e.Reason,
	}
}

// NewDocumentRenderFailedEvent creates a DocumentRenderFailedEvent.
func NewDocumentRenderFailedEvent(agreementID string, cause error) DocumentRenderFailedEvent {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return DocumentRenderFailedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventDocumentRenderFailed, agreementID),
		Reason:    reason,
	}
}

// ArchivedEvent is emitted when an agreement is archived.
type ArchivedEvent struct {
	shared.BaseEvent
	StudentID string `json:"student_id"`
	CompanyID string `json:"company_id"`
}

// Payload implements shared.Event.
func (e ArchivedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"agreement_id": e.AggregateId,
		"student_id":   e.StudentID,
		"company_id":   e.CompanyID,
	}
}

// NewArchivedEvent creates an ArchivedEvent.
func NewArchivedEvent(a *Agreement) ArchivedEvent {
	return ArchivedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventAgreementArchived, a.ID),
		StudentID: a.StudentID,
		CompanyID: a.CompanyID,
	}
}
