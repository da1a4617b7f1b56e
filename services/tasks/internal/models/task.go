package models

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultKind - kind задачи, если клиент его не передал
const DefaultKind = "task"

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Task - задача ("квест") пользователя. JSON повторяет форму документа в хранилище.
type Task struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Start     time.Time          `bson:"start" json:"start"`
	End       time.Time          `bson:"end" json:"end"`
	Kind      string             `bson:"kind" json:"kind"`
	Notes     *string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Completed bool               `bson:"completed" json:"completed"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TaskPatch - частичное обновление: nil означает "поле не менять"
type TaskPatch struct {
	Title     *string
	Start     *time.Time
	End       *time.Time
	Kind      *string
	Notes     *string
	Completed *bool
}

// Empty сообщает, что в патче нет ни одного поля
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Start == nil && p.End == nil &&
		p.Kind == nil && p.Notes == nil && p.Completed == nil
}

// Apply применяет патч к копии задачи
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Start != nil {
		t.Start = *p.Start
	}
	if p.End != nil {
		t.End = *p.End
	}
	if p.Kind != nil {
		t.Kind = *p.Kind
	}
	if p.Notes != nil {
		notes := *p.Notes
		t.Notes = &notes
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// ParseID проверяет, что id - это 24 hex-символа, и разбирает его
func ParseID(id string) (primitive.ObjectID, bool) {
	if !objectIDPattern.MatchString(id) {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
