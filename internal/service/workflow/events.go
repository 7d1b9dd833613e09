package workflow

import "github.com/orderdesk/orderdesk-api/internal/model"

// Workflow event names. One per landed transition or discrete business
// action; the dispatcher refuses names not in the registry.
const (
	EventQuotationSent     = "order.quotation_sent"
	EventQuotationAccepted = "order.quotation_accepted"
	EventQuotationRejected = "order.quotation_rejected"
	EventPaymentRequested  = "order.payment_requested"
	EventPaymentUploaded   = "order.payment_uploaded"
	EventPaymentVerified   = "order.payment_verified"
	EventPaymentRejected   = "order.payment_rejected"
	EventWriterAssigned    = "order.writer_assigned"
	EventWorkStarted       = "order.work_started"
	EventReviewSubmitted   = "order.review_submitted"
	EventReviewApproved    = "order.review_approved"
	EventRevisionRequired  = "order.revision_required"
	EventDelivered         = "order.delivered"
	EventCompleted         = "order.completed"
	EventCancelled         = "order.cancelled"
	EventReopened          = "order.reopened"
)

// DefaultEvents is the static per-role template configuration.
func DefaultEvents() []Event {
	return []Event{
		{
			Name: EventQuotationSent,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityWarning,
					Title:    "Quotation ready",
					Message:  "Your quotation for order {OrderCode} is ready for review.",
					Link:     "/orders/{OrderCode}/quotation",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Quotation sent",
					Message:  "Quotation for order {OrderCode} was sent by {ActorName}.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventQuotationAccepted,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityInfo,
					Title:    "Quotation accepted",
					Message:  "You accepted the quotation for order {OrderCode}.",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleBDE: {
					Severity: model.SeverityWarning,
					Title:    "Quotation accepted",
					Message:  "{ActorName} accepted the quotation for order {OrderCode}. Request the advance payment.",
					Link:     "/orders/{OrderCode}/payment",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Quotation accepted",
					Message:  "Quotation for order {OrderCode} was accepted.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventQuotationRejected,
			Templates: map[model.Role]Template{
				model.RoleBDE: {
					Severity: model.SeverityWarning,
					Title:    "Quotation rejected",
					Message:  "{ActorName} rejected the quotation for order {OrderCode}: {Reason}",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityWarning,
					Title:    "Quotation rejected",
					Message:  "Quotation for order {OrderCode} was rejected: {Reason}",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventPaymentRequested,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityWarning,
					Title:    "Advance payment requested",
					Message:  "Please upload the 50% advance payment of {Amount} for order {OrderCode}.",
					Link:     "/orders/{OrderCode}/payment",
				},
			},
		},
		{
			Name: EventPaymentUploaded,
			Templates: map[model.Role]Template{
				model.RoleBDE: {
					Severity: model.SeverityWarning,
					Title:    "Payment receipt uploaded",
					Message:  "A payment receipt for order {OrderCode} is awaiting verification.",
					Link:     "/orders/{OrderCode}/payment",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Payment receipt uploaded",
					Message:  "Payment receipt for order {OrderCode} was uploaded.",
					Link:     "/orders/{OrderCode}/payment",
				},
			},
		},
		{
			Name: EventPaymentVerified,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityInfo,
					Title:    "Payment verified",
					Message:  "Your payment for order {OrderCode} was verified. Work will be assigned shortly.",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Payment verified",
					Message:  "Payment for order {OrderCode} was verified by {ActorName}.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventPaymentRejected,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityCritical,
					Title:    "Payment rejected",
					Message:  "The payment receipt for order {OrderCode} was rejected: {Reason}. Please upload a valid receipt.",
					Link:     "/orders/{OrderCode}/payment",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Payment rejected",
					Message:  "Payment receipt for order {OrderCode} was rejected by {ActorName}.",
					Link:     "/orders/{OrderCode}/payment",
				},
			},
		},
		{
			Name: EventWriterAssigned,
			Templates: map[model.Role]Template{
				model.RoleWriter: {
					Severity: model.SeverityCritical,
					Title:    "New order assigned",
					Message:  "Order {OrderCode} ({OrderTitle}) was assigned to you. Deadline: {Deadline}.",
					Link:     "/work/{OrderCode}",
				},
				model.RoleClient: {
					Severity: model.SeverityInfo,
					Title:    "Work assigned",
					Message:  "A writer was assigned to your order {OrderCode}.",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Writer assigned",
					Message:  "{ActorName} assigned a writer to order {OrderCode}.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventWorkStarted,
			Templates: map[model.Role]Template{
				model.RoleBDE: {
					Severity: model.SeverityInfo,
					Title:    "Work started",
					Message:  "Work on order {OrderCode} has started.",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Work started",
					Message:  "Work on order {OrderCode} has started.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventReviewSubmitted,
			Templates: map[model.Role]Template{
				model.RoleBDE: {
					Severity: model.SeverityWarning,
					Title:    "Submission awaiting review",
					Message:  "Order {OrderCode} was submitted for review.",
					Link:     "/orders/{OrderCode}/review",
				},
				model.RoleAdmin: {
					Severity: model.SeverityWarning,
					Title:    "Submission awaiting review",
					Message:  "Order {OrderCode} was submitted for review by {ActorName}.",
					Link:     "/orders/{OrderCode}/review",
				},
			},
		},
		{
			Name: EventReviewApproved,
			Templates: map[model.Role]Template{
				model.RoleWriter: {
					Severity: model.SeverityInfo,
					Title:    "Review approved",
					Message:  "Your submission for order {OrderCode} passed review.",
					Link:     "/work/{OrderCode}",
				},
				model.RoleBDE: {
					Severity: model.SeverityWarning,
					Title:    "Review approved",
					Message:  "Order {OrderCode} passed review and is ready for delivery.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventRevisionRequired,
			Templates: map[model.Role]Template{
				model.RoleWriter: {
					Severity: model.SeverityCritical,
					Title:    "Revision required",
					Message:  "Order {OrderCode} was sent back for revision: {Reason}",
					Link:     "/work/{OrderCode}",
				},
				model.RoleBDE: {
					Severity: model.SeverityInfo,
					Title:    "Revision required",
					Message:  "Order {OrderCode} was sent back for revision.",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Revision required",
					Message:  "Order {OrderCode} was sent back for revision by {ActorName}.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventDelivered,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityCritical,
					Title:    "Order delivered",
					Message:  "Order {OrderCode} was delivered. Please review and confirm completion.",
					Link:     "/orders/{OrderCode}/delivery",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Order delivered",
					Message:  "Order {OrderCode} was delivered to the client.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventCompleted,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityInfo,
					Title:    "Order completed",
					Message:  "Order {OrderCode} is complete. Thank you.",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleBDE: {
					Severity: model.SeverityInfo,
					Title:    "Order completed",
					Message:  "Order {OrderCode} was marked complete.",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleWriter: {
					Severity: model.SeverityInfo,
					Title:    "Order completed",
					Message:  "Order {OrderCode} was accepted by the client.",
					Link:     "/work/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Order completed",
					Message:  "Order {OrderCode} was completed.",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventCancelled,
			Templates: map[model.Role]Template{
				model.RoleClient: {
					Severity: model.SeverityWarning,
					Title:    "Order cancelled",
					Message:  "Order {OrderCode} was cancelled: {Reason}",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleBDE: {
					Severity: model.SeverityWarning,
					Title:    "Order cancelled",
					Message:  "Order {OrderCode} was cancelled: {Reason}",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleWriter: {
					Severity: model.SeverityWarning,
					Title:    "Order cancelled",
					Message:  "Order {OrderCode} was cancelled. Stop any work in progress.",
					Link:     "/work/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityInfo,
					Title:    "Order cancelled",
					Message:  "Order {OrderCode} was cancelled by {ActorName}: {Reason}",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
		{
			Name: EventReopened,
			Templates: map[model.Role]Template{
				model.RoleBDE: {
					Severity: model.SeverityWarning,
					Title:    "Order reopened",
					Message:  "Order {OrderCode} was reopened by {ActorName}: {Reason}",
					Link:     "/orders/{OrderCode}",
				},
				model.RoleAdmin: {
					Severity: model.SeverityWarning,
					Title:    "Order reopened",
					Message:  "Order {OrderCode} was reopened: {Reason}",
					Link:     "/orders/{OrderCode}",
				},
			},
		},
	}
}
