package service

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/models"
)

// Guard решает, может ли пользователь работать с задачей.
// Существование задачи проверяется раньше, поэтому по умолчанию
// чужая задача даёт ErrForbidden, а не ErrNotFound. HideForeign
// сворачивает ErrForbidden в ErrNotFound.
type Guard struct {
	HideForeign bool
}

func (g Guard) Authorize(task *models.Task, userID primitive.ObjectID) error {
	if task.UserID == userID {
		return nil
	}
	if g.HideForeign {
		return ErrNotFound
	}
	return ErrForbidden
}
