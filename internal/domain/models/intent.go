package models

import (
	"time"

	"omnia/internal/datatable"
)

// Intent is an NLP intent: a named set of training questions and the
// responses the assistant may answer with.
type Intent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Questions   []string  `json:"questions"`
	Responses   []string  `json:"responses"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IntentInput is the payload of create and update requests.
type IntentInput struct {
	Name        string   `json:"name" form:"name" validate:"required,min=5,max=120"`
	Description string   `json:"description" form:"description" validate:"max=500"`
	Questions   []string `json:"questions" form:"questions" validate:"dive,max=500"`
	Responses   []string `json:"responses" form:"responses" validate:"dive,max=2000"`
}

// IntentSortColumns are the columns intents can be ordered by.
var IntentSortColumns = []string{"name", "description", "createdAt", "updatedAt"}

// IntentColumns describes the intent table.
func IntentColumns() []datatable.Column[Intent] {
	return []datatable.Column[Intent]{
		{Key: "id", Label: "ID", Value: func(i Intent) any { return i.ID }},
		{Key: "name", Label: "Name", Sortable: true, Value: func(i Intent) any { return i.Name }},
		{Key: "description", Label: "Description", Sortable: true, Value: func(i Intent) any { return i.Description }},
		{Key: "questions", Label: "Questions", Value: func(i Intent) any { return len(i.Questions) }},
		{Key: "createdAt", Label: "Created", Sortable: true, Value: func(i Intent) any { return i.CreatedAt }},
		{Key: "updatedAt", Label: "Updated", Sortable: true, Value: func(i Intent) any { return i.UpdatedAt }},
	}
}
