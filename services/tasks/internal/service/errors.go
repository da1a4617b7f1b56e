package service

import "errors"

var (
	// ErrUnauthenticated - у запроса нет внешнего идентификатора
	ErrUnauthenticated = errors.New("no authenticated user found")
	// ErrInvalidID - id не похож на 24 hex-символа; хранилище не запрашивается
	ErrInvalidID = errors.New("invalid task id format")
	// ErrNotFound - задачи с таким id нет
	ErrNotFound = errors.New("task not found")
	// ErrForbidden - задача принадлежит другому пользователю
	ErrForbidden = errors.New("not authorized for this task")
	// ErrSummaryGeneration - внешний суммаризатор не справился
	ErrSummaryGeneration = errors.New("summary generation failed")
)

// ValidationError - ошибка входных данных; Message показывается клиенту как есть
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationError(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation сообщает, что err - ошибка валидации, и возвращает её
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	ok := errors.As(err, &v)
	return v, ok
}
