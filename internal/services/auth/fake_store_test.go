package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/farm-manager/internal/models"
	"github.com/magabrotheeeer/farm-manager/internal/storage"
)

// fakeStore хранилище в памяти с той же семантикой условных обновлений, что и SQL.
type fakeStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	plans      map[uuid.UUID][]models.Plan
	properties map[uuid.UUID]uuid.UUID // property -> owner
	failWith   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[uuid.UUID]*models.User),
		plans:      make(map[uuid.UUID][]models.Plan),
		properties: make(map[uuid.UUID]uuid.UUID),
	}
}

func clone(u *models.User) *models.User {
	cp := *u
	return &cp
}

func strPtr(s string) *string { return &s }

func (f *fakeStore) find(match func(*models.User) bool) (*models.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func eq(p *string, v string) bool { return p != nil && *p == v }

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeStore) FindByVerificationToken(_ context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *models.User) bool { return eq(u.VerificationToken, token) })
}

func (f *fakeStore) FindByResetToken(_ context.Context, token string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *models.User) bool {
		return eq(u.ResetPasswordToken, token) && u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now)
	})
}

func (f *fakeStore) insert(u *models.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return storage.ErrEmailTaken
		}
	}
	f.users[u.ID] = clone(u)
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *models.User, trial *models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insert(u); err != nil {
		return err
	}
	if trial != nil {
		f.plans[u.ID] = append(f.plans[u.ID], *trial)
	}
	return nil
}

func (f *fakeStore) CreateSubUser(_ context.Context, u *models.User, propertyIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.AccessibleProperties = propertyIDs
	return f.insert(u)
}

func (f *fakeStore) UpdateProfile(_ context.Context, id uuid.UUID, upd models.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	if upd.Email != nil {
		for _, other := range f.users {
			if other.ID != id && other.Email == *upd.Email {
				return storage.ErrEmailTaken
			}
		}
		u.Email = *upd.Email
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Photo != nil {
		u.Photo = *upd.Photo
	}
	return nil
}

func (f *fakeStore) ConsumeVerificationToken(_ context.Context, token, hash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if eq(u.VerificationToken, token) && u.AdminID == nil {
			u.PasswordHash = hash
			u.EmailVerified = true
			u.VerificationToken = nil
			return clone(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeStore) ConfirmInvitationCode(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && eq(u.VerificationToken, code) && u.AdminID != nil {
			u.EmailVerified = true
			return nil
		}
	}
	return storage.ErrUserNotFound
}

func (f *fakeStore) CompleteInvitation(_ context.Context, email, code, name, phone, hash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && eq(u.VerificationToken, code) && u.AdminID != nil {
			u.Name, u.Phone, u.PasswordHash = name, phone, hash
			u.EmailVerified = true
			u.VerificationToken = nil
			return clone(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeStore) SetResetToken(_ context.Context, id uuid.UUID, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.ResetPasswordToken = &token
	u.ResetPasswordExpires = &expires
	return nil
}

func (f *fakeStore) ConsumeResetToken(_ context.Context, token, hash string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if eq(u.ResetPasswordToken, token) && u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) &&
			u.EmailVerified && u.HasPassword() {
			u.PasswordHash = hash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			return clone(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeStore) CountOwnedProperties(_ context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if f.properties[id] == ownerID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListPlans(_ context.Context, userID uuid.UUID) ([]models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Plan(nil), f.plans[userID]...), nil
}

func (f *fakeStore) get(email string) *models.User {
	u, _ := f.FindByEmail(context.Background(), email)
	return u
}
