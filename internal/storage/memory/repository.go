// Package memory is a storage.Repository held in process memory. It backs
// HTTP tests and the serve command's --in-memory demo mode; it mirrors the
// PostgreSQL repository's constraints (unique emails, status transitions,
// ordering) but persists nothing.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/nko-directory/internal/domain/events"
	"github.com/Togather-Foundation/nko-directory/internal/domain/nko"
	"github.com/Togather-Foundation/nko-directory/internal/domain/sessions"
	"github.com/Togather-Foundation/nko-directory/internal/domain/users"
	"github.com/Togather-Foundation/nko-directory/internal/storage"
)

// ErrEmptyName mirrors the nko_listings name CHECK constraint.
var ErrEmptyName = errors.New("listing name must not be empty")

type state struct {
	users    []users.User
	sessions []sessions.Session
	listings []nko.Listing
	events   []events.Event
	nextID   int64
}

func (s *state) clone() state {
	return state{
		users:    append([]users.User(nil), s.users...),
		sessions: append([]sessions.Session(nil), s.sessions...),
		listings: append([]nko.Listing(nil), s.listings...),
		events:   append([]events.Event(nil), s.events...),
		nextID:   s.nextID,
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

type Repository struct {
	mu    sync.Mutex
	data  state
	now   func() time.Time
	txMu  sync.Mutex
	onErr func(op string) error
}

func NewRepository() *Repository {
	return &Repository{now: time.Now}
}

// FailWith makes every subsequent operation named op return err. An empty op
// matches all operations; a nil err clears the fault.
func (r *Repository) FailWith(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		r.onErr = nil
		return
	}
	r.onErr = func(got string) error {
		if op == "" || op == got {
			return err
		}
		return nil
	}
}

func (r *Repository) fault(op string) error {
	if r.onErr == nil {
		return nil
	}
	return r.onErr(op)
}

func (r *Repository) Users() users.Repository       { return userRepo{r} }
func (r *Repository) Sessions() sessions.Repository { return sessionRepo{r} }
func (r *Repository) Listings() nko.Repository      { return listingRepo{r} }
func (r *Repository) Events() events.Repository     { return eventRepo{r} }

func (r *Repository) Ping(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fault("ping")
}

// SchemaVersion always reports a clean, current schema.
func (r *Repository) SchemaVersion(context.Context) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("schema_version"); err != nil {
		return 0, false, err
	}
	return 1, false, nil
}

// WithTx restores the previous state when fn fails. Transactions are
// serialized with each other but not isolated from concurrent non-tx calls.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := r.data.clone()
	r.mu.Unlock()

	if err := fn(ctx, r); err != nil {
		r.mu.Lock()
		r.data = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

type userRepo struct{ r *Repository }

func (u userRepo) Create(_ context.Context, params users.CreateParams) (*users.User, error) {
	r := u.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("create_user"); err != nil {
		return nil, err
	}
	for _, existing := range r.data.users {
		if existing.Email == params.Email {
			return nil, users.ErrEmailTaken
		}
	}
	user := users.User{
		ID:           r.data.id(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		AccountType:  params.AccountType,
		CreatedAt:    r.now().UTC(),
	}
	r.data.users = append(r.data.users, user)
	return &user, nil
}

func (u userRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	return u.find("get_user_by_email", func(user users.User) bool { return user.Email == email })
}

func (u userRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	return u.find("get_user_by_id", func(user users.User) bool { return user.ID == id })
}

func (u userRepo) find(op string, match func(users.User) bool) (*users.User, error) {
	r := u.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault(op); err != nil {
		return nil, err
	}
	for _, user := range r.data.users {
		if match(user) {
			found := user
			return &found, nil
		}
	}
	return nil, users.ErrUserNotFound
}

type sessionRepo struct{ r *Repository }

func (s sessionRepo) Create(_ context.Context, userID int64, tokenHash string) (*sessions.Session, error) {
	r := s.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("create_session"); err != nil {
		return nil, err
	}
	session := sessions.Session{ID: r.data.id(), UserID: userID, TokenHash: tokenHash, CreatedAt: r.now().UTC()}
	r.data.sessions = append(r.data.sessions, session)
	return &session, nil
}

func (s sessionRepo) UserByTokenHash(_ context.Context, tokenHash string) (*users.User, error) {
	r := s.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("resolve_session"); err != nil {
		return nil, err
	}
	for _, session := range r.data.sessions {
		if session.TokenHash != tokenHash {
			continue
		}
		for _, user := range r.data.users {
			if user.ID == session.UserID {
				found := user
				return &found, nil
			}
		}
	}
	return nil, users.ErrUserNotFound
}

type listingRepo struct{ r *Repository }

func (l listingRepo) ListByStatus(_ context.Context, status nko.Status) ([]nko.Listing, error) {
	r := l.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("list_listings"); err != nil {
		return nil, err
	}
	var out []nko.Listing
	for _, listing := range r.data.listings {
		if listing.Status == status {
			out = append(out, listing)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (l listingRepo) GetByID(_ context.Context, id int64) (*nko.Listing, error) {
	r := l.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.listingIndex(id); i >= 0 {
		found := r.data.listings[i]
		return &found, nil
	}
	return nil, nko.ErrNotFound
}

func (l listingRepo) Create(_ context.Context, listing nko.NewListing) (int64, error) {
	r := l.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("create_listing"); err != nil {
		return 0, err
	}
	return r.insertListing(listing)
}

func (l listingRepo) CreateMany(_ context.Context, listings []nko.NewListing) (int, error) {
	r := l.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("create_listings"); err != nil {
		return 0, err
	}
	snapshot := r.data.clone()
	for _, listing := range listings {
		if _, err := r.insertListing(listing); err != nil {
			r.data = snapshot
			return 0, err
		}
	}
	return len(listings), nil
}

func (l listingRepo) UpdateStatus(_ context.Context, id int64, from, to nko.Status) error {
	if !nko.CanTransition(from, to) {
		return nko.ErrInvalidTransition
	}
	r := l.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("update_listing_status"); err != nil {
		return err
	}
	i := r.listingIndex(id)
	if i < 0 {
		return nko.ErrNotFound
	}
	if r.data.listings[i].Status != from {
		return nko.ErrInvalidTransition
	}
	r.data.listings[i].Status = to
	return nil
}

func (r *Repository) listingIndex(id int64) int {
	for i := range r.data.listings {
		if r.data.listings[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Repository) insertListing(in nko.NewListing) (int64, error) {
	if in.Name == "" {
		return 0, ErrEmptyName
	}
	listing := nko.Listing{
		ID:              r.data.id(),
		Name:            in.Name,
		Category:        in.Category,
		Description:     in.Description,
		Volunteers:      in.Volunteers,
		Phone:           in.Phone,
		Address:         in.Address,
		Logo:            in.Logo,
		Website:         in.Website,
		Albums:          in.Albums,
		Filters:         in.Filters,
		City:            in.City,
		Lat:             in.Lat,
		Lng:             in.Lng,
		Status:          in.Status,
		CreatedByUserID: in.CreatedByUserID,
		CreatedAt:       r.now().UTC(),
	}
	r.data.listings = append(r.data.listings, listing)
	return listing.ID, nil
}

type eventRepo struct{ r *Repository }

func (e eventRepo) ListAll(context.Context) ([]events.Event, error) {
	r := e.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("list_events"); err != nil {
		return nil, err
	}
	out := append([]events.Event(nil), r.data.events...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (e eventRepo) CountByCity(_ context.Context, city string) (int, error) {
	r := e.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("count_events"); err != nil {
		return 0, err
	}
	n := 0
	for _, event := range r.data.events {
		if event.City == city {
			n++
		}
	}
	return n, nil
}

func (e eventRepo) CreateMany(_ context.Context, inputs []events.EventInput) (int, error) {
	r := e.r
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fault("create_events"); err != nil {
		return 0, err
	}
	for _, in := range inputs {
		r.data.events = append(r.data.events, events.Event{
			ID:        r.data.id(),
			Title:     in.Title,
			Category:  in.Category,
			City:      in.City,
			Address:   in.Address,
			Date:      in.Date,
			Time:      in.Time,
			Image:     in.Image,
			CreatedAt: r.now().UTC(),
		})
	}
	return len(inputs), nil
}

var _ storage.Repository = (*Repository)(nil)
