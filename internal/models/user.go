package models

// UserRole represents the roles issued by the identity provider.
type UserRole string

const (
	RoleProfessor    UserRole = "professor"
	RoleLabAssistant UserRole = "lab_assistant"
	RoleAdmin        UserRole = "admin"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
