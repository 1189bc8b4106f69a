package models

import "time"

// User — зритель или автор. Регистрация и аутентификация живут вне ядра,
// здесь нужен только факт существования идентификатора.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
