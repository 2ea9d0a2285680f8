package domain

import "omnia/internal/datatable"

// Role of an admin user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// UserStatus of an admin user account.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
)

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	SessionID string `json:"sessionId"`
}

// Page is the paginated response envelope of list endpoints.
type Page[T any] struct {
	Data       []T                  `json:"data"`
	Pagination datatable.Pagination `json:"pagination"`
}

// NewPage wraps rows for q. A nil slice is encoded as an empty array.
func NewPage[T any](rows []T, q datatable.Query, total int) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{Data: rows, Pagination: datatable.PaginationOf(q, total)}
}
