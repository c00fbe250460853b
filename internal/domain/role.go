package domain

import "fmt"

// Role — организационная роль пользователя.
// Роли не иерархичны: каждый шаг принадлежит ровно одной роли.
type Role string

const (
	RoleTechnicalService Role = "technical_service"
	RoleMarketsService   Role = "markets_service"
	RoleStateControl     Role = "state_control"
	RoleBudgetService    Role = "budget_service"
	RoleOrderingService  Role = "ordering_service"
	RoleTreasurer        Role = "treasurer"
	RoleAdmin            Role = "admin"
)

// Roles возвращает все роли в фиксированном порядке.
func Roles() []Role {
	return []Role{
		RoleTechnicalService,
		RoleMarketsService,
		RoleStateControl,
		RoleBudgetService,
		RoleOrderingService,
		RoleTreasurer,
		RoleAdmin,
	}
}

// Valid проверяет, что роль входит в перечисление.
func (r Role) Valid() bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole преобразует строку в Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
