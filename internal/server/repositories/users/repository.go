package users

import (
	"context"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository is the persistence gateway for user rows. Implementations
// return common.ErrorNotFound / common.ErrorAlreadyExists as sentinels.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}
