package domain

import (
	"time"

	"github.com/google/uuid"
)

// User — участник workflow с ролью.
// Справочник пользователей ведётся внешней системой; движок только читает его.
type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	IsAdmin  bool      `json:"is_admin"`
	IsActive bool      `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}

// CanSupervise возвращает true для администраторов.
func (u *User) CanSupervise() bool {
	return u.IsAdmin || u.Role == RoleAdmin
}
