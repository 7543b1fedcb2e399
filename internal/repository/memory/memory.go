// Package memory is an in-process repository.Store used by service and API
// tests. Transactions are serialized by a single mutex and rolled back by
// restoring a snapshot, which gives them serializable semantics.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
)

type state struct {
	seq          map[string]int64
	users        map[int64]domain.User
	branches     map[int64]domain.Branch
	categories   map[int64]domain.Category
	vehicles     map[int64]domain.Vehicle
	reservations map[int64]domain.Reservation
	damage       map[int64]domain.DamageReport
	payments     map[int64]domain.Payment
	activities   map[int64]domain.ActivityLogEntry
	complaints   map[int64]domain.Complaint
	documents    map[int64]domain.Document
	reviews      map[int64]domain.Review
	failures     map[string]error
}

func newState() *state {
	return &state{
		seq:          map[string]int64{},
		users:        map[int64]domain.User{},
		branches:     map[int64]domain.Branch{},
		categories:   map[int64]domain.Category{},
		vehicles:     map[int64]domain.Vehicle{},
		reservations: map[int64]domain.Reservation{},
		damage:       map[int64]domain.DamageReport{},
		payments:     map[int64]domain.Payment{},
		activities:   map[int64]domain.ActivityLogEntry{},
		complaints:   map[int64]domain.Complaint{},
		documents:    map[int64]domain.Document{},
		reviews:      map[int64]domain.Review{},
		failures:     map[string]error{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		seq:          cloneMap(s.seq),
		users:        cloneMap(s.users),
		branches:     cloneMap(s.branches),
		categories:   cloneMap(s.categories),
		vehicles:     cloneMap(s.vehicles),
		reservations: cloneMap(s.reservations),
		damage:       cloneMap(s.damage),
		payments:     cloneMap(s.payments),
		activities:   cloneMap(s.activities),
		complaints:   cloneMap(s.complaints),
		documents:    cloneMap(s.documents),
		reviews:      cloneMap(s.reviews),
		failures:     s.failures,
	}
}

func (s *state) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// fail returns and clears an injected failure for op.
func (s *state) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

type shared struct {
	mu sync.Mutex
	st *state
}

type Store struct {
	sh   *shared
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{sh: &shared{st: newState()}}
}

// with runs fn against the current state, taking the store lock unless the
// caller already holds it through WithTx.
func (s *Store) with(fn func(st *state) error) error {
	if !s.inTx {
		s.sh.mu.Lock()
		defer s.sh.mu.Unlock()
	}
	return fn(s.sh.st)
}

func (s *Store) WithTx(ctx context.Context, _ *sql.TxOptions, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return domain.NewPersistenceError(err)
	}

	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.st.clone()
	if err := fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.st = snapshot
		return domain.AsError(err)
	}
	return nil
}

// FailNext makes the next call of op return err. Ops are named
// "<table>.<method>", for example "damage_reports.create".
func (s *Store) FailNext(op string, err error) {
	s.with(func(st *state) error {
		st.failures[op] = err
		return nil
	})
}

// AddBranch seeds a branch.
func (s *Store) AddBranch(b domain.Branch) domain.Branch {
	s.with(func(st *state) error {
		b.ID = st.next("branches")
		st.branches[b.ID] = b
		return nil
	})
	return b
}

// AddCategory seeds a vehicle category.
func (s *Store) AddCategory(c domain.Category) domain.Category {
	s.with(func(st *state) error {
		c.ID = st.next("categories")
		st.categories[c.ID] = c
		return nil
	})
	return c
}

func (s *Store) Users() repository.UserRepository { return users{s} }

func (s *Store) Branches() repository.BranchRepository { return branches{s} }

func (s *Store) Categories() repository.CategoryRepository { return categories{s} }

func (s *Store) Vehicles() repository.VehicleRepository { return vehicles{s} }

func (s *Store) Reservations() repository.ReservationRepository { return reservations{s} }

func (s *Store) DamageReports() repository.DamageReportRepository {
	return damageReports{s}
}

func (s *Store) Payments() repository.PaymentRepository { return payments{s} }

func (s *Store) Activities() repository.ActivityRepository { return activities{s} }

func (s *Store) Complaints() repository.ComplaintRepository { return complaints{s} }

func (s *Store) Documents() repository.DocumentRepository { return documents{s} }

func (s *Store) Reviews() repository.ReviewRepository { return reviews{s} }

func paginate[T any](items []T, page domain.PageRequest) ([]T, int64) {
	total := int64(len(items))
	start := page.Offset()
	if start >= len(items) {
		return nil, total
	}
	end := start + page.PageSize
	if page.PageSize <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end], total
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func notFoundMsg(msg string) error {
	return &domain.Error{Kind: domain.ErrorKindNotFound, Code: "NOT_FOUND", Message: msg}
}

type users struct{ s *Store }

func (r users) Create(_ context.Context, u *domain.User) error {
	return r.s.with(func(st *state) error {
		if err := st.fail("users.create"); err != nil {
			return err
		}
		for _, existing := range st.users {
			if existing.DeletedAt == nil && strings.EqualFold(existing.Email, u.Email) {
				return domain.NewConflictError("DUPLICATE", "a record with the same unique value already exists")
			}
		}
		u.ID = st.next("users")
		if u.RegisteredAt.IsZero() {
			u.RegisteredAt = time.Now().UTC()
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r users) GetByID(_ context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.s.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.DeletedAt != nil {
			return domain.NewNotFoundError("user", id)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.s.with(func(st *state) error {
		for _, id := range sortedKeys(st.users) {
			u := st.users[id]
			if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return notFoundMsg("user not found")
	})
	return out, err
}

func (r users) Update(_ context.Context, u *domain.User) error {
	return r.s.with(func(st *state) error {
		existing, ok := st.users[u.ID]
		if !ok || existing.DeletedAt != nil {
			return domain.NewNotFoundError("user", u.ID)
		}
		for id, other := range st.users {
			if id != u.ID && other.DeletedAt == nil && strings.EqualFold(other.Email, u.Email) {
				return domain.NewConflictError("DUPLICATE", "a record with the same unique value already exists")
			}
		}
		u.RegisteredAt = existing.RegisteredAt
		st.users[u.ID] = *u
		return nil
	})
}

func (r users) SoftDelete(_ context.Context, id int64) error {
	return r.s.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.DeletedAt != nil {
			return domain.NewNotFoundError("user", id)
		}
		now := time.Now().UTC()
		u.DeletedAt = &now
		st.users[id] = u
		return nil
	})
}

func (r users) List(_ context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error) {
	var out []domain.User
	var total int64
	err := r.s.with(func(st *state) error {
		var all []domain.User
		search := strings.ToLower(filter.Search)
		for _, id := range sortedKeys(st.users) {
			u := st.users[id]
			if u.DeletedAt != nil {
				continue
			}
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(strings.ToLower(u.Email), search) {
				continue
			}
			all = append(all, u)
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })
		out, total = paginate(all, page)
		return nil
	})
	return out, total, err
}

func (r users) Count(_ context.Context) (int64, error) {
	var n int64
	err := r.s.with(func(st *state) error {
		for _, u := range st.users {
			if u.DeletedAt == nil {
				n++
			}
		}
		return nil
	})
	return n, err
}

type branches struct{ s *Store }

func (r branches) GetByID(_ context.Context, id int64) (*domain.Branch, error) {
	var out *domain.Branch
	err := r.s.with(func(st *state) error {
		b, ok := st.branches[id]
		if !ok {
			return domain.NewNotFoundError("branch", id)
		}
		out = &b
		return nil
	})
	return out, err
}

func (r branches) List(_ context.Context) ([]domain.Branch, error) {
	var out []domain.Branch
	err := r.s.with(func(st *state) error {
		for _, id := range sortedKeys(st.branches) {
			out = append(out, st.branches[id])
		}
		return nil
	})
	return out, err
}

type categories struct{ s *Store }

func (r categories) GetByID(_ context.Context, id int64) (*domain.Category, error) {
	var out *domain.Category
	err := r.s.with(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return domain.NewNotFoundError("category", id)
		}
		out = &c
		return nil
	})
	return out, err
}

func (r categories) List(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := r.s.with(func(st *state) error {
		for _, id := range sortedKeys(st.categories) {
			out = append(out, st.categories[id])
		}
		return nil
	})
	return out, err
}
