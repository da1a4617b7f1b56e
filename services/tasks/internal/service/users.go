package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/identity"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/repository"
)

// fallbackEmailDomain - домен контакта, если в токене нет email
const fallbackEmailDomain = "clerk.user"

// UserRegistry сопоставляет внешний идентификатор внутренней записи
// пользователя, создавая её при первом обращении
type UserRegistry struct {
	repo   repository.UserRepository
	logger *logrus.Logger
}

func NewUserRegistry(repo repository.UserRepository, logger *logrus.Logger) *UserRegistry {
	return &UserRegistry{repo: repo, logger: logger}
}

// Resolve находит или создаёт пользователя для идентичности запроса
func (r *UserRegistry) Resolve(ctx context.Context, id *identity.Identity) (*models.User, error) {
	if id == nil || id.Subject == "" {
		return nil, ErrUnauthenticated
	}

	user, err := r.repo.GetByExternalID(ctx, id.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	email := id.Email
	if email == "" {
		email = id.Subject + "@" + fallbackEmailDomain
	}
	user = &models.User{
		ClerkID:   id.Subject,
		Email:     email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	}

	err = r.repo.Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		// параллельный запрос уже создал пользователя
		winner, getErr := r.repo.GetByExternalID(ctx, id.Subject)
		if getErr != nil {
			return nil, fmt.Errorf("failed to find user: %w", getErr)
		}
		if winner != nil {
			return winner, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"component": "user_registry",
		"user_id":   user.ID.Hex(),
		"clerk_id":  user.ClerkID,
	}).Info("user created")
	return user, nil
}
