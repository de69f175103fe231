package models

import (
	"time"
)

type Todo struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Status      bool      `json:"status" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TodoInput is the body accepted on create. Status is a pointer so that an
// explicit false is distinguishable from a missing field.
type TodoInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Status      *bool  `json:"status" binding:"required"`
}

// TodoUpdate holds a partial update. Nil fields are left untouched.
type TodoUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *bool   `json:"status"`
}

func (u TodoUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Status == nil
}

// Fields returns the column/field names and values that are set.
func (u TodoUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, 3)
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	return fields
}

func (u TodoUpdate) Apply(todo *Todo) {
	if u.Name != nil {
		todo.Name = *u.Name
	}
	if u.Description != nil {
		todo.Description = *u.Description
	}
	if u.Status != nil {
		todo.Status = *u.Status
	}
}
