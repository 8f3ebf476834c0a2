package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/laundry-backend/internal/apperr"
	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/internal/storage"
)

// UserPatch carries the fields of a user update. Nil fields are left alone.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Password  *string
	Salt      *string
}

// CredentialStore owns the users collection.
type CredentialStore struct {
	users *storage.Collection[models.User]
	now   func() time.Time
}

func NewCredentialStore(backend storage.Backend, now func() time.Time) *CredentialStore {
	if now == nil {
		now = time.Now
	}
	return &CredentialStore{
		users: storage.NewCollection(backend, storage.Users, models.User.Clone),
		now:   now,
	}
}

// Load reads the persisted users.
func (s *CredentialStore) Load(ctx context.Context) error {
	return s.users.Load(ctx)
}

func (s *CredentialStore) FindByEmail(email string) (models.User, bool) {
	return s.users.Find(func(u models.User) bool { return u.Email == email })
}

func (s *CredentialStore) FindByID(id string) (models.User, bool) {
	return s.users.Find(func(u models.User) bool { return u.ID == id })
}

func (s *CredentialStore) List() []models.User {
	return s.users.Snapshot()
}

// Insert appends user. The email check and the append happen under the same
// write lock, so two signups with one address cannot both succeed.
func (s *CredentialStore) Insert(ctx context.Context, user models.User) (models.User, error) {
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, error) {
		for _, u := range users {
			if u.Email == user.Email {
				return nil, apperr.DuplicateEmail("Email already in use")
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *CredentialStore) Update(ctx context.Context, id string, patch UserPatch) (models.User, error) {
	var updated models.User
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, error) {
		for i := range users {
			if users[i].ID != id {
				continue
			}
			u := &users[i]
			if patch.FirstName != nil {
				u.FirstName = *patch.FirstName
			}
			if patch.LastName != nil {
				u.LastName = *patch.LastName
			}
			if patch.Phone != nil {
				u.Phone = *patch.Phone
			}
			if patch.Password != nil {
				u.Password = *patch.Password
			}
			if patch.Salt != nil {
				u.Salt = *patch.Salt
			}
			u.UpdatedAt = s.now().UTC()
			updated = *u
			return users, nil
		}
		return nil, apperr.NotFound("User not found")
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// Delete removes the user and returns the removed record.
func (s *CredentialStore) Delete(ctx context.Context, id string) (models.User, error) {
	var removed models.User
	err := s.users.Mutate(ctx, func(users []models.User) ([]models.User, error) {
		for i, u := range users {
			if u.ID == id {
				removed = u
				return append(users[:i], users[i+1:]...), nil
			}
		}
		return nil, apperr.NotFound("User not found")
	})
	if err != nil {
		return models.User{}, err
	}
	return removed, nil
}
