package model

type UserID string

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleEditor  Role = "editor"
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

func (r Role) CanEdit() bool {
	return r == RoleAdmin || r == RoleEditor
}
