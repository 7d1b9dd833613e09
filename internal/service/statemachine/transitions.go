package statemachine

import (
	"fmt"

	"github.com/orderdesk/orderdesk-api/internal/model"
)

// Table maps (role, current status) to the set of statuses that role may
// move the order to. Loaded once at startup and never mutated.
type Table map[model.Role]map[model.OrderStatus][]model.OrderStatus

// DefaultTable builds the canonical transition table. The admin table is the
// union of every other role's edges plus review decisions, cancellation of
// any open order, and recovery edges out of the rejection states.
func DefaultTable() Table {
	client := map[model.OrderStatus][]model.OrderStatus{
		model.StatusQuotationSent:    {model.StatusQuotationAccepted, model.StatusQuotationRejected},
		model.StatusPaymentRequested: {model.StatusPaymentUploaded},
		model.StatusDelivered:        {model.StatusCompleted},
	}

	bde := map[model.OrderStatus][]model.OrderStatus{
		model.StatusNewQuery:          {model.StatusQuotationSent, model.StatusCancelled},
		model.StatusQuotationAccepted: {model.StatusPaymentRequested},
		model.StatusPaymentUploaded:   {model.StatusPaymentVerified, model.StatusPaymentRequested},
		model.StatusPaymentVerified:   {model.StatusWriterAssigned},
		model.StatusReviewApproved:    {model.StatusDelivered},
	}

	writer := map[model.OrderStatus][]model.OrderStatus{
		model.StatusWriterAssigned:   {model.StatusInProgress},
		model.StatusInProgress:       {model.StatusPendingReview},
		model.StatusRevisionRequired: {model.StatusInProgress},
	}

	admin := mergeTables(client, bde, writer)
	addEdges(admin, model.StatusPendingReview, model.StatusReviewApproved, model.StatusRevisionRequired)
	for _, s := range model.AllStatuses {
		if !s.IsTerminal() {
			addEdges(admin, s, model.StatusCancelled)
		}
	}
	// Recovery edges out of rejection states. These sit behind the terminal
	// override because their source statuses are terminal.
	addEdges(admin, model.StatusQuotationRejected, model.StatusQuotationSent)
	addEdges(admin, model.StatusCancelled, model.StatusNewQuery)

	return Table{
		model.RoleClient: client,
		model.RoleBDE:    bde,
		model.RoleWriter: writer,
		model.RoleAdmin:  admin,
	}
}

// Allowed returns the targets a role may move the order to from the given
// status. A nil slice means the role has no entry for that status.
func (t Table) Allowed(role model.Role, from model.OrderStatus) []model.OrderStatus {
	roleTable, ok := t[role]
	if !ok {
		return nil
	}
	return roleTable[from]
}

// Validate checks internal consistency: every edge references defined
// statuses and no role's edge leaves a terminal state except admin's.
func (t Table) Validate() error {
	for role, edges := range t {
		for from, targets := range edges {
			if !from.Valid() {
				return fmt.Errorf("role %s: undefined source status %d", role, int(from))
			}
			if from.IsTerminal() && role != model.RoleAdmin {
				return fmt.Errorf("role %s: edge out of terminal status %s", role, from)
			}
			for _, to := range targets {
				if !to.Valid() {
					return fmt.Errorf("role %s: undefined target status %d from %s", role, int(to), from)
				}
				if to == from {
					return fmt.Errorf("role %s: self edge on %s", role, from)
				}
			}
		}
	}
	return nil
}

func mergeTables(tables ...map[model.OrderStatus][]model.OrderStatus) map[model.OrderStatus][]model.OrderStatus {
	merged := make(map[model.OrderStatus][]model.OrderStatus)
	for _, table := range tables {
		for from, targets := range table {
			addEdges(merged, from, targets...)
		}
	}
	return merged
}

func addEdges(table map[model.OrderStatus][]model.OrderStatus, from model.OrderStatus, targets ...model.OrderStatus) {
	for _, to := range targets {
		if !containsStatus(table[from], to) {
			table[from] = append(table[from], to)
		}
	}
}

func containsStatus(set []model.OrderStatus, s model.OrderStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
