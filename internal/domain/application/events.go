package application

import (
	"github.com/internhub/internhub/internal/domain/shared"
)

// SubmittedEvent is emitted when a student applies to an offer.
type SubmittedEvent struct {
	shared.BaseEvent
	StudentID string `json:"student_id"`
	OfferID   string `json:"offer_id"`
	CompanyID string `json:"company_id"`
}

// Payload implements shared.Event.
func (e SubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id": e.AggregateId,
		"student_id":     e.StudentID,
		"offer_id":       e.OfferID,
		"company_id":     e.CompanyID,
	}
}

// NewSubmittedEvent creates a SubmittedEvent.
func NewSubmittedEvent(app *Application, companyID string) SubmittedEvent {
	return SubmittedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventApplicationSubmitted, app.ID),
		StudentID: app.StudentID,
		OfferID:   app.OfferID,
		CompanyID: companyID,
	}
}

// AcceptedEvent is emitted when a company accepts an application. It is
// consumed inside the accepting transaction to provision the agreement.
type AcceptedEvent struct {
	shared.BaseEvent
	StudentID string `json:"student_id"`
	OfferID   string `json:"offer_id"`
	CompanyID string `json:"company_id"`
}

// Payload implements shared.Event.
func (e AcceptedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id": e.AggregateId,
		"student_id":     e.StudentID,
		"offer_id":       e.OfferID,
		"company_id":     e.CompanyID,
	}
}

// NewAcceptedEvent creates an AcceptedEvent.
func NewAcceptedEvent(app *Application, companyID string) AcceptedEvent {
	return AcceptedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventApplicationAccepted, app.ID),
		StudentID: app.StudentID,
		OfferID:   app.OfferID,
		CompanyID: companyID,
	}
}

// RejectedEvent is emitted when a company rejects an application.
type RejectedEvent struct {
	shared.BaseEvent
	StudentID string `json:"student_id"`
	OfferID   string `json:"offer_id"`
	CompanyID string `json:"company_id"`
	Comment   string `json:"comment,omitempty"`
}

// Payload implements shared.Event.
func (e RejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id": e.AggregateId,
		"student_id":     e.StudentID,
		"offer_id":       e.OfferID,
		"company_id":     e.CompanyID,
		"comment":        e.Comment,
	}
}

// NewRejectedEvent creates a RejectedEvent.
func NewRejectedEvent(app *Application, companyID string) RejectedEvent {
	e := RejectedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventApplicationRejected, app.ID),
		StudentID: app.StudentID,
		OfferID:   app.OfferID,
		CompanyID: companyID,
	}
	if app.RejectionComment != nil {
		e.Comment = *app.RejectionComment
	}
	return e
}

// WithdrawnEvent is emitted when a student withdraws a pending application.
type WithdrawnEvent struct {
	shared.BaseEvent
	StudentID string `json:"student_id"`
	OfferID   string `json:"offer_id"`
}

// Payload implements shared.Event.
func (e WithdrawnEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"application_id": e.AggregateId,
		"student_id":     e.StudentID,
		"offer_id":       e.OfferID,
	}
}

// NewWithdrawnEvent creates a WithdrawnEvent.
func NewWithdrawnEvent(app *Application) WithdrawnEvent {
	return WithdrawnEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventApplicationWithdrawn, app.ID),
		StudentID: app.StudentID,
		OfferID:   app.OfferID,
	}
}
