// Package access определяет действующую роль аккаунта и права на карточки.
// Роль, а не ACL на карточку, является единицей авторизации.
// Старшинство: admin > user > read > анонимный.
package access

// Role — уровень возможностей аккаунта.
type Role string

// Роли в порядке возрастания привилегий. RoleNone соответствует анонимному вызывающему.
const (
	RoleNone  Role = ""
	RoleRead  Role = "read"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// roleWeight — вес роли для сравнения. Чем выше вес, тем больше привилегий.
var roleWeight = map[Role]int{
	RoleRead:  1,
	RoleUser:  2,
	RoleAdmin: 3,
}

// ParseRole проверяет строку роли. Второй результат false для неизвестных значений.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleWeight[r]
	return r, ok
}

// HighestRole возвращает самую привилегированную из известных ролей набора.
// Неизвестные строки игнорируются; пустой набор даёт RoleNone.
func HighestRole(roles []string) Role {
	highest := RoleNone
	for _, s := range roles {
		r, ok := ParseRole(s)
		if !ok {
			continue
		}
		if roleWeight[r] > roleWeight[highest] {
			highest = r
		}
	}
	return highest
}

// CanCreate — создавать карточки могут admin и user.
func CanCreate(role Role) bool {
	return role == RoleAdmin || role == RoleUser
}

// CanEdit — admin правит всё, user только свои карточки.
func CanEdit(role Role, cardOwnerID, callerID int64) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleUser:
		return cardOwnerID == callerID
	default:
		return false
	}
}

// CanDelete совпадает с CanEdit.
func CanDelete(role Role, cardOwnerID, callerID int64) bool {
	return CanEdit(role, cardOwnerID, callerID)
}

// CanEditAny сообщает, может ли роль править хоть какую-то карточку.
// Позволяет отказать до обращения к хранилищу.
func CanEditAny(role Role) bool {
	return role == RoleAdmin || role == RoleUser
}
