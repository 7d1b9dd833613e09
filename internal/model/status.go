package model

import "fmt"

// OrderStatus is the single canonical status enum. Values are spaced so new
// statuses can be inserted without renumbering persisted rows.
type OrderStatus int

const (
	StatusNewQuery          OrderStatus = 10
	StatusQuotationSent     OrderStatus = 20
	StatusQuotationAccepted OrderStatus = 30
	StatusPaymentRequested  OrderStatus = 40
	StatusPaymentUploaded   OrderStatus = 50
	StatusPaymentVerified   OrderStatus = 60
	StatusWriterAssigned    OrderStatus = 70
	StatusInProgress        OrderStatus = 80
	StatusPendingReview     OrderStatus = 90
	StatusRevisionRequired  OrderStatus = 100
	StatusReviewApproved    OrderStatus = 110
	StatusDelivered         OrderStatus = 120
	StatusCompleted         OrderStatus = 130
	StatusCancelled         OrderStatus = 140
	StatusQuotationRejected OrderStatus = 150
)

// Phase groups statuses for reporting and deadline sweeps.
type Phase string

const (
	PhaseQuery      Phase = "query"
	PhasePayment    Phase = "payment"
	PhaseAssignment Phase = "assignment"
	PhaseExecution  Phase = "execution"
	PhaseQC         Phase = "qc"
	PhaseDelivery   Phase = "delivery"
	PhaseTerminal   Phase = "terminal"
)

var statusNames = map[OrderStatus]string{
	StatusNewQuery:          "new_query",
	StatusQuotationSent:     "quotation_sent",
	StatusQuotationAccepted: "quotation_accepted",
	StatusPaymentRequested:  "payment_requested",
	StatusPaymentUploaded:   "payment_uploaded",
	StatusPaymentVerified:   "payment_verified",
	StatusWriterAssigned:    "writer_assigned",
	StatusInProgress:        "in_progress",
	StatusPendingReview:     "pending_review",
	StatusRevisionRequired:  "revision_required",
	StatusReviewApproved:    "review_approved",
	StatusDelivered:         "delivered",
	StatusCompleted:         "completed",
	StatusCancelled:         "cancelled",
	StatusQuotationRejected: "quotation_rejected",
}

var statusPhases = map[OrderStatus]Phase{
	StatusNewQuery:          PhaseQuery,
	StatusQuotationSent:     PhaseQuery,
	StatusQuotationAccepted: PhaseQuery,
	StatusPaymentRequested:  PhasePayment,
	StatusPaymentUploaded:   PhasePayment,
	StatusPaymentVerified:   PhasePayment,
	StatusWriterAssigned:    PhaseAssignment,
	StatusInProgress:        PhaseExecution,
	StatusPendingReview:     PhaseQC,
	StatusRevisionRequired:  PhaseExecution,
	StatusReviewApproved:    PhaseQC,
	StatusDelivered:         PhaseDelivery,
	StatusCompleted:         PhaseTerminal,
	StatusCancelled:         PhaseTerminal,
	StatusQuotationRejected: PhaseTerminal,
}

// AllStatuses lists every defined status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusNewQuery,
	StatusQuotationSent,
	StatusQuotationAccepted,
	StatusPaymentRequested,
	StatusPaymentUploaded,
	StatusPaymentVerified,
	StatusWriterAssigned,
	StatusInProgress,
	StatusPendingReview,
	StatusRevisionRequired,
	StatusReviewApproved,
	StatusDelivered,
	StatusCompleted,
	StatusCancelled,
	StatusQuotationRejected,
}

// ParseStatus resolves a status by its wire name.
func ParseStatus(name string) (OrderStatus, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

func (s OrderStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s OrderStatus) Phase() Phase {
	return statusPhases[s]
}

func (s OrderStatus) IsTerminal() bool {
	return statusPhases[s] == PhaseTerminal
}

func (s OrderStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}
