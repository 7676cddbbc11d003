package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/orderdesk/internal/apperr"
	"github.com/iliyamo/orderdesk/internal/model"
	"github.com/iliyamo/orderdesk/internal/policy"
	"github.com/iliyamo/orderdesk/internal/ports"
	"github.com/iliyamo/orderdesk/internal/queue"
)

// memState is the full content of the in-memory store. Row structs are
// replaced on update, never mutated in place, so clone can share pointers.
type memState struct {
	users          map[uint64]model.User
	tokens         []model.RefreshToken
	services       map[uint64]model.Service
	orders         map[uint64]model.Order
	attachments    []model.OrderAttachment
	deliveries     map[uint64]model.Delivery
	orderEvents    []model.OrderEvent
	deliveryEvents []model.DeliveryEvent
	nextID         uint64
}

func (s *memState) clone() *memState {
	return &memState{
		users:          maps.Clone(s.users),
		tokens:         slices.Clone(s.tokens),
		services:       maps.Clone(s.services),
		orders:         maps.Clone(s.orders),
		attachments:    slices.Clone(s.attachments),
		deliveries:     maps.Clone(s.deliveries),
		orderEvents:    slices.Clone(s.orderEvents),
		deliveryEvents: slices.Clone(s.deliveryEvents),
		nextID:         s.nextID,
	}
}

// memStore implements every ports repository plus a unit of work that
// restores a snapshot when the closure fails.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *memState
	now  func() time.Time

	// failEvents makes every event append fail, to exercise rollback.
	failEvents error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		now: now,
		st: &memState{
			users:      map[uint64]model.User{},
			services:   map[uint64]model.Service{},
			orders:     map[uint64]model.Order{},
			deliveries: map[uint64]model.Delivery{},
			nextID:     100,
		},
	}
}

func (m *memStore) id() uint64 {
	m.st.nextID++
	return m.st.nextID
}

func (m *memStore) Repos() ports.Repositories {
	return ports.Repositories{
		Users:       memUsers{m},
		Tokens:      memTokens{m},
		Services:    memServices{m},
		Orders:      memOrders{m},
		Attachments: memAttachments{m},
		Deliveries:  memDeliveries{m},
		Events:      memEvents{m},
	}
}

func (m *memStore) Do(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(ctx, m.Repos()); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// seeding helpers; explicit ids keep scenarios readable

func (m *memStore) putUser(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.CreatedAt, u.UpdatedAt = m.now(), m.now()
	m.st.users[u.ID] = u
}

func (m *memStore) putService(s model.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt, s.UpdatedAt = m.now(), m.now()
	m.st.services[s.ID] = s
}

func (m *memStore) putOrder(o model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.CreatedAt, o.UpdatedAt = m.now(), m.now()
	m.st.orders[o.ID] = o
}

func (m *memStore) order(id uint64) model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.orders[id]
}

func (m *memStore) deliveriesFor(orderID uint64) []model.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Delivery
	for _, d := range m.st.deliveries {
		if d.OrderID == orderID {
			out = append(out, d)
		}
	}
	return out
}

func (m *memStore) tokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.tokens)
}

func (m *memStore) attachmentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.attachments)
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *model.User) (uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.st.users {
		if existing.Email == u.Email {
			return 0, apperr.Conflict("duplicate entry", nil)
		}
	}
	row := *u
	row.ID = r.m.id()
	row.CreatedAt, row.UpdatedAt = r.m.now(), r.m.now()
	r.m.st.users[row.ID] = row
	return row.ID, nil
}

func (r memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.st.users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, apperr.NotFound("user not found")
}

func (r memUsers) List(_ context.Context, limit int) ([]model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := slices.Collect(maps.Values(r.m.st.users))
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return truncate(out, limit), nil
}

func (r memUsers) Toggle(_ context.Context, id uint64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.st.users[id]
	if !ok {
		return false, apperr.NotFound("user not found")
	}
	u.IsActive = !u.IsActive
	u.UpdatedAt = r.m.now()
	r.m.st.users[id] = u
	return u.IsActive, nil
}

func (r memUsers) Count(context.Context) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return int64(len(r.m.st.users)), nil
}

type memTokens struct{ m *memStore }

func (r memTokens) Store(_ context.Context, userID uint64, hash string, expiresAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.st.tokens = append(r.m.st.tokens, model.RefreshToken{
		ID: r.m.id(), UserID: userID, TokenHash: hash, ExpiresAt: expiresAt, CreatedAt: r.m.now(),
	})
	return nil
}

func (r memTokens) Find(_ context.Context, userID uint64, hash string) (model.RefreshToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.st.tokens {
		if t.UserID == userID && t.TokenHash == hash {
			return t, nil
		}
	}
	return model.RefreshToken{}, apperr.NotFound("refresh token not found")
}

func (r memTokens) DeleteByHash(_ context.Context, hash string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.st.tokens = slices.DeleteFunc(r.m.st.tokens, func(t model.RefreshToken) bool { return t.TokenHash == hash })
	return nil
}

func (r memTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := len(r.m.st.tokens)
	r.m.st.tokens = slices.DeleteFunc(r.m.st.tokens, func(t model.RefreshToken) bool { return !t.ExpiresAt.After(before) })
	return int64(n - len(r.m.st.tokens)), nil
}

type memServices struct{ m *memStore }

func (r memServices) Create(_ context.Context, s *model.Service) (uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row := *s
	row.ID = r.m.id()
	row.CreatedAt, row.UpdatedAt = r.m.now(), r.m.now()
	r.m.st.services[row.ID] = row
	return row.ID, nil
}

func (r memServices) GetByID(_ context.Context, id uint64) (model.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.st.services[id]
	if !ok {
		return model.Service{}, apperr.NotFound("service not found")
	}
	return s, nil
}

func (r memServices) ListActive(context.Context) ([]model.Service, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]model.Service, 0)
	for _, s := range r.m.st.services {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memServices) SetActive(_ context.Context, id uint64, active bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.st.services[id]
	if !ok {
		return apperr.NotFound("service not found")
	}
	s.IsActive = active
	r.m.st.services[id] = s
	return nil
}

type memOrders struct{ m *memStore }

func (r memOrders) Create(_ context.Context, o *model.Order) (uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.st.services[o.ServiceID]; !ok {
		return 0, apperr.Validation("referenced row does not exist", nil)
	}
	row := *o
	row.ID = r.m.id()
	row.Status = model.OrderCreated
	row.CreatedAt, row.UpdatedAt = r.m.now(), r.m.now()
	r.m.st.orders[row.ID] = row
	return row.ID, nil
}

func (r memOrders) GetByID(_ context.Context, id uint64) (model.Order, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.st.orders[id]
	if !ok {
		return model.Order{}, apperr.NotFound("order not found")
	}
	return o, nil
}

func (r memOrders) GetForUpdate(ctx context.Context, id uint64) (model.Order, error) {
	return r.GetByID(ctx, id)
}

func (r memOrders) UpdateStatus(_ context.Context, id uint64, status model.OrderStatus, assignedTo *uint64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	o, ok := r.m.st.orders[id]
	if !ok {
		return apperr.NotFound("order not found")
	}
	o.Status = status
	if assignedTo != nil {
		v := *assignedTo
		o.AssignedTo = &v
	}
	o.UpdatedAt = r.m.now()
	r.m.st.orders[id] = o
	return nil
}

func (r memOrders) List(_ context.Context, scope policy.Scope, limit int) ([]model.OrderView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]model.OrderView, 0)
	if scope.None {
		return out, nil
	}
	for _, o := range r.m.st.orders {
		var d *model.Delivery
		for _, cand := range r.m.st.deliveries {
			if cand.OrderID == o.ID {
				c := cand
				d = &c
			}
		}
		switch {
		case scope.All:
		case scope.ClientID != 0 && o.ClientID == scope.ClientID:
		case scope.AssigneeID != 0 && o.AssigneeID() == scope.AssigneeID:
		case scope.CourierID != 0 && d != nil && d.DeliveryUserID == scope.CourierID:
		default:
			continue
		}
		v := model.OrderView{
			Order:       o,
			ServiceName: r.m.st.services[o.ServiceID].Name,
			ClientName:  r.m.st.users[o.ClientID].Name,
		}
		if o.AssignedTo != nil {
			name := r.m.st.users[*o.AssignedTo].Name
			v.AssigneeName = &name
		}
		if d != nil {
			id, status, name := d.ID, d.Status, r.m.st.users[d.DeliveryUserID].Name
			v.DeliveryID, v.DeliveryStatus, v.DeliveryName = &id, &status, &name
			v.LastLat, v.LastLng = d.LastLat, d.LastLng
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func (r memOrders) Count(_ context.Context, statuses ...model.OrderStatus) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, o := range r.m.st.orders {
		if len(statuses) == 0 || slices.Contains(statuses, o.Status) {
			n++
		}
	}
	return n, nil
}

func (r memOrders) CountByStatus(context.Context) ([]model.StatusCount, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	counts := map[model.OrderStatus]int64{}
	for _, o := range r.m.st.orders {
		counts[o.Status]++
	}
	out := make([]model.StatusCount, 0)
	for _, s := range model.OrderStatuses {
		if counts[s] > 0 {
			out = append(out, model.StatusCount{Status: s, Count: counts[s]})
		}
	}
	return out, nil
}

type memAttachments struct{ m *memStore }

func (r memAttachments) Create(_ context.Context, a *model.OrderAttachment) (uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	row := *a
	row.ID = r.m.id()
	r.m.st.attachments = append(r.m.st.attachments, row)
	return row.ID, nil
}

func (r memAttachments) ListByOrder(_ context.Context, orderID uint64, limit int) ([]model.OrderAttachment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]model.OrderAttachment, 0)
	for i := len(r.m.st.attachments) - 1; i >= 0; i-- {
		if a := r.m.st.attachments[i]; a.OrderID == orderID {
			out = append(out, a)
		}
	}
	return truncate(out, limit), nil
}

type memDeliveries struct{ m *memStore }

func (r memDeliveries) Upsert(_ context.Context, orderID, courierID uint64) (uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, d := range r.m.st.deliveries {
		if d.OrderID == orderID {
			d.DeliveryUserID = courierID
			d.Status = model.DeliveryAssigned
			d.UpdatedAt = r.m.now()
			r.m.st.deliveries[id] = d
			return id, nil
		}
	}
	d := model.Delivery{
		ID:             r.m.id(),
		OrderID:        orderID,
		DeliveryUserID: courierID,
		Status:         model.DeliveryAssigned,
		CreatedAt:      r.m.now(),
		UpdatedAt:      r.m.now(),
	}
	r.m.st.deliveries[d.ID] = d
	return d.ID, nil
}

func (r memDeliveries) GetByID(_ context.Context, id uint64) (model.Delivery, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.st.deliveries[id]
	if !ok {
		return model.Delivery{}, apperr.NotFound("delivery not found")
	}
	return d, nil
}

func (r memDeliveries) GetForUpdate(ctx context.Context, id uint64) (model.Delivery, error) {
	return r.GetByID(ctx, id)
}

func (r memDeliveries) CourierIDsForOrder(_ context.Context, orderID uint64) ([]uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var ids []uint64
	for _, d := range r.m.st.deliveries {
		if d.OrderID == orderID {
			ids = append(ids, d.DeliveryUserID)
		}
	}
	return ids, nil
}

func (r memDeliveries) update(id uint64, fn func(*model.Delivery)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.st.deliveries[id]
	if !ok {
		return apperr.NotFound("delivery not found")
	}
	fn(&d)
	d.UpdatedAt = r.m.now()
	r.m.st.deliveries[id] = d
	return nil
}

func (r memDeliveries) UpdateStatus(_ context.Context, id uint64, status model.DeliveryStatus) error {
	return r.update(id, func(d *model.Delivery) { d.Status = status })
}

func (r memDeliveries) UpdateLocation(_ context.Context, id uint64, lat, lng float64) error {
	return r.update(id, func(d *model.Delivery) { d.LastLat, d.LastLng = &lat, &lng })
}

func (r memDeliveries) UpdateDestination(_ context.Context, id uint64, lat, lng float64) error {
	return r.update(id, func(d *model.Delivery) { d.DestLat, d.DestLng = &lat, &lng })
}

func (r memDeliveries) List(_ context.Context, scope policy.Scope, limit int) ([]model.DeliveryView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]model.DeliveryView, 0)
	if scope.None {
		return out, nil
	}
	for _, d := range r.m.st.deliveries {
		o := r.m.st.orders[d.OrderID]
		switch {
		case scope.All:
		case scope.ClientID != 0 && o.ClientID == scope.ClientID:
		case scope.AssigneeID != 0 && o.AssigneeID() == scope.AssigneeID:
		case scope.CourierID != 0 && d.DeliveryUserID == scope.CourierID:
		default:
			continue
		}
		out = append(out, model.DeliveryView{
			Delivery:     d,
			OrderTitle:   o.Title,
			OrderStatus:  o.Status,
			DeliveryName: r.m.st.users[d.DeliveryUserID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return truncate(out, limit), nil
}

type memEvents struct{ m *memStore }

func (r memEvents) AppendOrderEvent(_ context.Context, e *model.OrderEvent) (uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failEvents != nil {
		return 0, r.m.failEvents
	}
	row := *e
	row.ID = r.m.id()
	r.m.st.orderEvents = append(r.m.st.orderEvents, row)
	return row.ID, nil
}

func (r memEvents) ListOrderEvents(_ context.Context, orderID uint64, limit int) ([]model.OrderEvent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]model.OrderEvent, 0)
	for i := len(r.m.st.orderEvents) - 1; i >= 0; i-- {
		if e := r.m.st.orderEvents[i]; e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return truncate(out, limit), nil
}

func (r memEvents) AppendDeliveryEvent(_ context.Context, e *model.DeliveryEvent) (uint64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failEvents != nil {
		return 0, r.m.failEvents
	}
	row := *e
	row.ID = r.m.id()
	r.m.st.deliveryEvents = append(r.m.st.deliveryEvents, row)
	return row.ID, nil
}

func (r memEvents) ListDeliveryEvents(_ context.Context, deliveryID uint64, limit int) ([]model.DeliveryEvent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]model.DeliveryEvent, 0)
	for i := len(r.m.st.deliveryEvents) - 1; i >= 0; i-- {
		if e := r.m.st.deliveryEvents[i]; e.DeliveryID == deliveryID {
			out = append(out, e)
		}
	}
	return truncate(out, limit), nil
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// memFiles is an in-memory ports.FileStore.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	seq   int
}

func newMemFiles() *memFiles { return &memFiles{files: map[string][]byte{}} }

func (f *memFiles) Save(r io.Reader, originalName, prefix string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := "/uploads/" + prefix + "/" + string(rune('a'+f.seq%26)) + "-" + originalName
	f.files[ref] = body
	return ref, nil
}

func (f *memFiles) Delete(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[ref]; !ok {
		return errors.New("no such file")
	}
	delete(f.files, ref)
	return nil
}

func (f *memFiles) get(ref string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[ref]
	return bytes.Clone(b), ok
}

func (f *memFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.WorkflowEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.WorkflowEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) published() []queue.WorkflowEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}
