package ports

import (
	"context"
	"time"

	"github.com/Th3rick2002/backend-rincon-intipuquenio/internal/core/domain"
)

// UserRepository defines the persistence operations for user accounts.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when the id does not resolve.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}
