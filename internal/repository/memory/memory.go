// Package memory is an in-process store used for demo mode and tests.
// Writes are serialized; every transaction works on a private copy that is
// swapped in on success.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/repository"
)

type state struct {
	equipment      map[string]domain.Equipment
	equipmentOrder []string
	instances      map[string]domain.Instance
	instanceOrder  []string
	checkouts      map[string]domain.Checkout
	checkoutOrder  []string
	notes          map[string]domain.DeliveryNote
	users          map[string]domain.User
	userOrder      []string
	noteSeq        int64
	version        int64
}

func newState() *state {
	return &state{
		equipment: make(map[string]domain.Equipment),
		instances: make(map[string]domain.Instance),
		checkouts: make(map[string]domain.Checkout),
		notes:     make(map[string]domain.DeliveryNote),
		users:     make(map[string]domain.User),
	}
}

func (s *state) clone() *state {
	return &state{
		equipment:      maps.Clone(s.equipment),
		equipmentOrder: slices.Clone(s.equipmentOrder),
		instances:      maps.Clone(s.instances),
		instanceOrder:  slices.Clone(s.instanceOrder),
		checkouts:      maps.Clone(s.checkouts),
		checkoutOrder:  slices.Clone(s.checkoutOrder),
		notes:          maps.Clone(s.notes),
		users:          maps.Clone(s.users),
		userOrder:      slices.Clone(s.userOrder),
		noteSeq:        s.noteSeq,
		version:        s.version,
	}
}

// Store implements every repository interface on top of maps.
type Store struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	state  *state
	faults *Faults
}

func NewStore() *Store {
	return &Store{state: newState(), faults: NewFaults()}
}

// Equipment exposes the catalog view of the store.
func (s *Store) Equipment() repository.EquipmentRepository { return s }

// Faults returns the injector consulted by every write.
func (s *Store) Faults() *Faults { return s.faults }

func (s *Store) write(fn func(st *state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	staged := s.state.clone()
	s.mu.RUnlock()

	if err := fn(staged); err != nil {
		return err
	}
	staged.version++

	s.mu.Lock()
	s.state = staged
	s.mu.Unlock()
	return nil
}

func (s *Store) read() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Equipment

func (s *Store) Create(ctx context.Context, eq *domain.Equipment) error {
	if err := s.faults.check("create_equipment"); err != nil {
		return err
	}
	return s.write(func(st *state) error {
		if eq.ID == "" {
			eq.ID = uuid.NewString()
		}
		if _, ok := st.equipment[eq.ID]; ok {
			return fmt.Errorf("equipment %s already exists", eq.ID)
		}
		now := time.Now().UTC()
		eq.CreatedOn, eq.UpdatedOn = now, now
		st.equipment[eq.ID] = *eq
		st.equipmentOrder = append(st.equipmentOrder, eq.ID)
		return nil
	})
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	st := s.read()
	eq, ok := st.equipment[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &eq, nil
}

func (s *Store) List(ctx context.Context) ([]domain.Equipment, error) {
	st := s.read()
	out := make([]domain.Equipment, 0, len(st.equipmentOrder))
	for _, id := range st.equipmentOrder {
		out = append(out, st.equipment[id])
	}
	return out, nil
}

func (s *Store) CreateInstances(ctx context.Context, instances []domain.Instance) error {
	return s.write(func(st *state) error {
		return insertInstances(st, instances)
	})
}

func insertInstances(st *state, instances []domain.Instance) error {
	for i := range instances {
		in := &instances[i]
		if _, ok := st.equipment[in.EquipmentID]; !ok {
			return domain.ErrNotFound
		}
		for _, existing := range st.instances {
			if existing.QRCode == in.QRCode {
				return fmt.Errorf("qr code %s already in use", in.QRCode)
			}
		}
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		st.instances[in.ID] = *in
		st.instanceOrder = append(st.instanceOrder, in.ID)
	}
	return nil
}

func (s *Store) ListInstances(ctx context.Context, equipmentID string) ([]domain.Instance, error) {
	st := s.read()
	var out []domain.Instance
	for _, id := range st.instanceOrder {
		in := st.instances[id]
		if equipmentID == "" || in.EquipmentID == equipmentID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (s *Store) Snapshot(ctx context.Context) (*domain.Catalog, error) {
	st := s.read()
	cat := &domain.Catalog{Version: st.version}
	for _, id := range st.equipmentOrder {
		cat.Equipment = append(cat.Equipment, st.equipment[id])
	}
	for _, id := range st.instanceOrder {
		cat.Instances = append(cat.Instances, st.instances[id])
	}
	return cat, nil
}

// Checkouts

type checkoutRepository struct{ s *Store }

// Checkouts exposes the checkout repository view of the store.
func (s *Store) Checkouts() repository.CheckoutRepository { return checkoutRepository{s} }

func (r checkoutRepository) GetByID(ctx context.Context, id string) (*domain.Checkout, error) {
	st := r.s.read()
	c, ok := st.checkouts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r checkoutRepository) ListOutstanding(ctx context.Context, equipmentID string) ([]domain.Checkout, error) {
	st := r.s.read()
	var out []domain.Checkout
	for _, id := range st.checkoutOrder {
		c := st.checkouts[id]
		if c.Status.Outstanding() && (equipmentID == "" || c.EquipmentID == equipmentID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r checkoutRepository) MarkOverdue(ctx context.Context, now time.Time) ([]domain.Checkout, error) {
	var changed []domain.Checkout
	err := r.s.write(func(st *state) error {
		all := make([]domain.Checkout, 0, len(st.checkoutOrder))
		for _, id := range st.checkoutOrder {
			all = append(all, st.checkouts[id])
		}
		changed = ledger.MarkOverdue(all, now)
		for _, c := range changed {
			st.checkouts[c.ID] = c
		}
		return nil
	})
	return changed, err
}

func (r checkoutRepository) GetDeliveryNote(ctx context.Context, id string) (*domain.DeliveryNote, error) {
	st := r.s.read()
	note, ok := st.notes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	note.Checkouts = nil
	for _, cid := range st.checkoutOrder {
		c := st.checkouts[cid]
		if c.DeliveryNoteID != nil && *c.DeliveryNoteID == id {
			note.Checkouts = append(note.Checkouts, c)
		}
	}
	if u, ok := st.users[note.UserID]; ok {
		note.User = &u
	}
	return &note, nil
}

// Users

type userRepository struct{ s *Store }

// Users exposes the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return userRepository{s} }

func (r userRepository) Create(ctx context.Context, u *domain.User) error {
	return r.s.write(func(st *state) error {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Role == "" {
			u.Role = domain.UserRoleBorrower
		}
		u.CreatedOn = time.Now().UTC()
		st.users[u.ID] = *u
		st.userOrder = append(st.userOrder, u.ID)
		return nil
	})
}

func (r userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	st := r.s.read()
	u, ok := st.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r userRepository) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	st := r.s.read()
	q := strings.ToLower(strings.TrimSpace(query))
	var out []domain.User
	for _, id := range st.userOrder {
		u := st.users[id]
		hay := strings.ToLower(u.FirstName + " " + u.LastName + " " + u.Email + " " + u.Department)
		if q == "" || strings.Contains(hay, q) {
			out = append(out, u)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
