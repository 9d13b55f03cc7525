// Package eventhandler contains reactions to domain events.
//
// Handlers here are side effects of committed transitions: notifications and
// document render retries. They run asynchronously on the event bus and never
// influence the outcome of the operation that raised the event.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/internhub/internhub/internal/domain/agreement"
	"github.com/internhub/internhub/internal/domain/notification"
	"github.com/internhub/internhub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// NOTIFY PARTIES HANDLER
// Turns workflow events into in-app notifications for the people involved.
// Events may arrive as concrete types or as GenericEvent from another
// instance, so every field is read through the payload.
// ═══════════════════════════════════════════════════════════════════════════

// NotifyParties sends notifications for workflow events.
type NotifyParties struct {
	sink   notification.Sink
	logger *slog.Logger
}

// NewNotifyParties creates a new NotifyParties handler.
func NewNotifyParties(sink notification.Sink, logger *slog.Logger) *NotifyParties {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyParties{
		sink:   sink,
		logger: logger.With("handler", "notify_parties"),
	}
}

// EventTypes lists the events this handler subscribes to.
func (h *NotifyParties) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventApplicationSubmitted,
		shared.EventApplicationAccepted,
		shared.EventApplicationRejected,
		shared.EventAgreementCreated,
		shared.EventAgreementSigned,
		shared.EventAgreementFullySigned,
		shared.EventTutorAssigned,
		shared.EventProgressUpdated,
	}
}

type message struct {
	to       string
	text     string
	category notification.Category
	link     string
}

// Handle implements shared.EventHandler. It never returns an error; sink
// failures are handled by the sink.
func (h *NotifyParties) Handle(event shared.Event) error {
	ctx := context.Background()

	msgs := h.messagesFor(event)
	for _, m := range msgs {
		if m.to == "" {
			continue
		}
		h.sink.Notify(ctx, m.to, m.text, m.category, m.link)
	}

	h.logger.Debug("notifications dispatched",
		"event_type", event.EventType(),
		"aggregate_id", event.AggregateID(),
		"count", len(msgs),
	)
	return nil
}

func (h *NotifyParties) messagesFor(event shared.Event) []message {
	field := func(key string) string { return shared.PayloadString(event, key) }

	switch event.EventType() {
	case shared.EventApplicationSubmitted:
		link := "/applications/" + field("application_id")
		return []message{
			{field("company_id"), "A new application was submitted to your offer.", notification.CategoryApplication, link},
		}

	case shared.EventApplicationAccepted:
		link := "/applications/" + field("application_id")
		return []message{
			{field("student_id"), "Your application was accepted. An internship agreement has been drafted.", notification.CategoryApplication, link},
		}

	case shared.EventApplicationRejected:
		link := "/applications/" + field("application_id")
		text := "Your application was not retained."
		if c := field("comment"); c != "" {
			text += " Comment: " + c
		}
		return []message{{field("student_id"), text, notification.CategoryApplication, link}}

	case shared.EventAgreementCreated:
		link := "/agreements/" + field("agreement_id")
		text := "A new internship agreement is ready for signatures."
		return []message{
			{field("student_id"), text, notification.CategoryAgreement, link},
			{field("company_id"), text, notification.CategoryAgreement, link},
		}

	case shared.EventAgreementSigned:
		return signedMessages(agreement.Party(field("party")), field("student_id"), field("company_id"), field("agreement_id"))

	case shared.EventAgreementFullySigned:
		link := "/agreements/" + field("agreement_id")
		text := "The internship agreement is fully signed."
		return []message{
			{field("student_id"), text, notification.CategoryAgreement, link},
			{field("company_id"), text, notification.CategoryAgreement, link},
		}

	case shared.EventTutorAssigned:
		link := "/supervisions/" + field("supervision_id")
		return []message{
			{field("tutor_id"), "You have been assigned a new intern to supervise.", notification.CategorySupervision, link},
			{field("student_id"), "An academic tutor has been assigned to your internship.", notification.CategorySupervision, link},
		}

	case shared.EventProgressUpdated:
		link := "/supervisions/" + field("supervision_id")
		return []message{
			{field("student_id"), "Your tutor updated your internship follow-up (" + field("progress") + ").", notification.CategorySupervision, link},
		}
	}
	return nil
}

// signedMessages notifies the parties other than the signer. The
// administration has no personal inbox.
func signedMessages(signer agreement.Party, studentID, companyID, agreementID string) []message {
	link := "/agreements/" + agreementID
	text := "The internship agreement was signed by the " + partyLabel(signer) + "."

	var out []message
	if signer != agreement.PartyStudent {
		out = append(out, message{studentID, text, notification.CategoryAgreement, link})
	}
	if signer != agreement.PartyCompany {
		out = append(out, message{companyID, text, notification.CategoryAgreement, link})
	}
	return out
}

func partyLabel(p agreement.Party) string {
	switch p {
	case agreement.PartyStudent:
		return "student"
	case agreement.PartyCompany:
		return "company"
	default:
		return "administration"
	}
}
