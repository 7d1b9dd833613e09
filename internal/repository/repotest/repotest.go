// Package repotest provides in-memory repository implementations for service
// tests. They mirror the SQL semantics of the postgres package closely enough
// to exercise the guarded increments and at-most-once markers the sweeps
// depend on.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/repository"
)

// OrderRepo is an in-memory repository.OrderRepository.
type OrderRepo struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*model.Order
	history []*model.OrderHistoryEntry

	// CreateErr, UpdateErr and ApplyErr are returned verbatim when set,
	// before any state change.
	CreateErr error
	UpdateErr error
	ApplyErr  error
	// HistoryErr fails the history insert inside the transition
	// transaction, after the status write; the transaction rolls back.
	HistoryErr error
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

// Seed stores an order directly, assigning an id when absent.
func (r *OrderRepo) Seed(order *model.Order) *model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	c := *order
	r.orders[order.ID] = &c
	return order
}

func (r *OrderRepo) Create(_ context.Context, order *model.Order) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	c := *order
	r.orders[order.ID] = &c
	return nil
}

func (r *OrderRepo) Get(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	c := *order
	return &c, nil
}

func (r *OrderRepo) GetByCode(_ context.Context, code string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.QueryCode == code || order.WorkCode == code {
			c := *order
			return &c, nil
		}
	}
	return nil, fmt.Errorf("order with code %q not found", code)
}

func (r *OrderRepo) Update(_ context.Context, order *model.Order) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return fmt.Errorf("order %s not found", order.ID)
	}
	order.UpdatedAt = time.Now()
	c := *order
	r.orders[order.ID] = &c
	return nil
}

func (r *OrderRepo) List(_ context.Context, filter *model.OrderFilter) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, order := range r.orders {
		if filter != nil {
			if filter.Status != nil && order.Status != *filter.Status {
				continue
			}
			if filter.ClientID != nil && order.ClientID != *filter.ClientID {
				continue
			}
			if filter.BDEID != nil && (order.BDEID == nil || *order.BDEID != *filter.BDEID) {
				continue
			}
			if filter.WriterID != nil && (order.WriterID == nil || *order.WriterID != *filter.WriterID) {
				continue
			}
		}
		c := *order
		out = append(out, &c)
	}
	return out, nil
}

// ApplyTransition hands decide a copy of the stored row and commits the
// returned status and history entry only when decide succeeds, matching the
// transactional contract of the postgres implementation.
func (r *OrderRepo) ApplyTransition(_ context.Context, orderID uuid.UUID, decide repository.TransitionFunc) error {
	if r.ApplyErr != nil {
		return r.ApplyErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	current := *stored
	status, entry, err := decide(&current)
	if err != nil {
		return err
	}
	// Stage the status write first, then the history insert; either
	// failure discards both, as the real transaction would.
	current.Status = status
	current.UpdatedAt = time.Now()
	if r.HistoryErr != nil {
		return r.HistoryErr
	}
	if entry != nil {
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.CreatedAt = time.Now()
		r.history = append(r.history, entry)
	}
	*stored = current
	return nil
}

func (r *OrderRepo) AppendHistory(_ context.Context, entry *model.OrderHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	r.history = append(r.history, entry)
	return nil
}

func (r *OrderRepo) ListHistory(_ context.Context, orderID uuid.UUID) ([]*model.OrderHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.OrderHistoryEntry
	for _, entry := range r.history {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *OrderRepo) ListDueWithin(_ context.Context, horizon time.Duration, limit int) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*model.Order
	for _, order := range r.orders {
		if order.WriterID == nil || order.Deadline == nil || order.Status.IsTerminal() {
			continue
		}
		if order.Deadline.After(now) && !order.Deadline.After(now.Add(horizon)) {
			c := *order
			out = append(out, &c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// History returns every appended entry regardless of order.
func (r *OrderRepo) History() []*model.OrderHistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.OrderHistoryEntry(nil), r.history...)
}

// NotificationRepo is an in-memory repository.NotificationRepository.
type NotificationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Notification

	CreateErr error
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{rows: make(map[uuid.UUID]*model.Notification)}
}

func (r *NotificationRepo) Seed(n *model.Notification) *model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	c := *n
	r.rows[n.ID] = &c
	return n
}

func (r *NotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	c := *n
	r.rows[n.ID] = &c
	return nil
}

func (r *NotificationRepo) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("notification %s not found", id)
	}
	c := *n
	return &c, nil
}

func (r *NotificationRepo) ListForUser(_ context.Context, userID uuid.UUID, filter *model.NotificationFilter) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.rows {
		if n.UserID != userID {
			continue
		}
		if filter != nil {
			if filter.UnreadOnly && n.IsRead {
				continue
			}
			if filter.Severity != nil && n.Severity != *filter.Severity {
				continue
			}
		}
		c := *n
		out = append(out, &c)
	}
	return out, nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification not found")
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	return nil
}

func (r *NotificationRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification not found")
	}
	delete(r.rows, id)
	return nil
}

func (r *NotificationRepo) ListUnreadForReminder(_ context.Context, severity model.Severity, cutoff time.Time, maxCount, limit int) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.rows {
		if n.IsRead || !n.NeedsReminder || n.Severity != severity {
			continue
		}
		if !n.CreatedAt.Before(cutoff) || n.ReminderCount >= maxCount {
			continue
		}
		c := *n
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *NotificationRepo) BumpReminderCount(_ context.Context, id uuid.UUID, expect int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.IsRead || n.ReminderCount != expect {
		return false, nil
	}
	n.ReminderCount++
	return true, nil
}

// All returns every stored notification.
func (r *NotificationRepo) All() []*model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Notification, 0, len(r.rows))
	for _, n := range r.rows {
		c := *n
		out = append(out, &c)
	}
	return out
}

// ForUser returns the stored notifications addressed to one user.
func (r *NotificationRepo) ForUser(userID uuid.UUID) []*model.Notification {
	var out []*model.Notification
	for _, n := range r.All() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// ReminderRepo is an in-memory repository.ReminderRepository keyed the same
// way as the deadline_reminders unique index.
type ReminderRepo struct {
	mu      sync.Mutex
	markers map[string]*model.ReminderMarker
}

func NewReminderRepo() *ReminderRepo {
	return &ReminderRepo{markers: make(map[string]*model.ReminderMarker)}
}

func markerKey(kind model.ReminderSubject, subjectID uuid.UUID, band string) string {
	return fmt.Sprintf("%s|%s|%s", kind, subjectID, band)
}

func (r *ReminderRepo) Fire(_ context.Context, kind model.ReminderSubject, subjectID, recipientID uuid.UUID, band string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := markerKey(kind, subjectID, band)
	if m, ok := r.markers[key]; ok {
		if m.Fired {
			return false, nil
		}
		m.Fired = true
		return true, nil
	}
	now := time.Now()
	r.markers[key] = &model.ReminderMarker{
		ID:          uuid.New(),
		SubjectKind: kind,
		SubjectID:   subjectID,
		RecipientID: recipientID,
		Band:        band,
		Fired:       true,
		FiredAt:     &now,
		CreatedAt:   now,
	}
	return true, nil
}

func (r *ReminderRepo) ListForSubject(_ context.Context, kind model.ReminderSubject, subjectID uuid.UUID) ([]*model.ReminderMarker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ReminderMarker
	for _, m := range r.markers {
		if m.SubjectKind == kind && m.SubjectID == subjectID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func NewUserRepo(users ...*model.User) *UserRepo {
	r := &UserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		r.Seed(u)
	}
	return r
}

func (r *UserRepo) Seed(u *model.User) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	c := *u
	r.users[u.ID] = &c
	return u
}

func (r *UserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user with email %q not found", email)
}

func (r *UserRepo) ListByRole(_ context.Context, role model.Role) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, u := range r.users {
		if u.Role == role {
			c := *u
			out = append(out, &c)
		}
	}
	return out, nil
}

// OutboxRepo is an in-memory repository.OutboxRepository.
type OutboxRepo struct {
	mu     sync.Mutex
	events []*model.OutboxEvent

	CreateErr error
}

func NewOutboxRepo() *OutboxRepo {
	return &OutboxRepo{}
}

// Seed stores an event exactly as given, assigning an id when absent.
func (r *OutboxRepo) Seed(event *model.OutboxEvent) *model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	c := *event
	r.events = append(r.events, &c)
	return event
}

func (r *OutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Status == "" {
		event.Status = model.OutboxStatusPending
	}
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	c := *event
	r.events = append(r.events, &c)
	return nil
}

func (r *OutboxRepo) GetPendingWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []*model.OutboxEvent
	for _, event := range r.events {
		if event.Status != model.OutboxStatusPending && event.Status != model.OutboxStatusRetry {
			continue
		}
		if event.RetryAt != nil && event.RetryAt.After(now) {
			continue
		}
		c := *event
		out = append(out, &c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.ID != id {
			continue
		}
		event.Status = status
		event.ErrorMessage = errorMessage
		event.RetryAt = retryAt
		event.UpdatedAt = time.Now()
		if status == model.OutboxStatusRetry {
			event.RetryCount++
		}
		if status == model.OutboxStatusProcessed {
			now := time.Now()
			event.ProcessedAt = &now
		}
		return nil
	}
	return fmt.Errorf("outbox event %s not found", id)
}

func (r *OutboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.OutboxEvent
	var deleted int64
	for _, event := range r.events {
		if event.Status == model.OutboxStatusProcessed && event.ProcessedAt != nil && event.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	r.events = kept
	return deleted, nil
}

// All returns every stored event.
func (r *OutboxRepo) All() []*model.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.OutboxEvent, 0, len(r.events))
	for _, event := range r.events {
		c := *event
		out = append(out, &c)
	}
	return out
}

// OfType returns stored events of one event type.
func (r *OutboxRepo) OfType(eventType string) []*model.OutboxEvent {
	var out []*model.OutboxEvent
	for _, event := range r.All() {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

// AuditRepo is an in-memory repository.AuditRepository.
type AuditRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func NewAuditRepo() *AuditRepo {
	return &AuditRepo{}
}

func (r *AuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *log
	r.logs = append(r.logs, &c)
	return nil
}

func (r *AuditRepo) List(_ context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditLog
	for _, log := range r.logs {
		if action, ok := filters["action"].(string); ok && log.Action != action {
			continue
		}
		c := *log
		out = append(out, &c)
	}
	return out, nil
}

func (r *AuditRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.AuditLog
	var deleted int64
	for _, log := range r.logs {
		if log.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, log)
	}
	r.logs = kept
	return deleted, nil
}

// ByAction returns stored audit rows matching an action.
func (r *AuditRepo) ByAction(action string) []*model.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditLog
	for _, log := range r.logs {
		if log.Action == action {
			c := *log
			out = append(out, &c)
		}
	}
	return out
}

var (
	_ repository.OrderRepository        = (*OrderRepo)(nil)
	_ repository.NotificationRepository = (*NotificationRepo)(nil)
	_ repository.ReminderRepository     = (*ReminderRepo)(nil)
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.OutboxRepository       = (*OutboxRepo)(nil)
	_ repository.AuditRepository        = (*AuditRepo)(nil)
)
