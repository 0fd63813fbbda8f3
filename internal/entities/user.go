package entities

import "time"

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleCashier UserRole = "cashier"
)

// AdminUsername is the account created by the seeder on every fresh database.
const AdminUsername = "ADMIN"

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex:idx_users_username" json:"username"`
	Password  string    `gorm:"size:100" json:"password,omitempty"` // bcrypt hash
	Role      UserRole  `gorm:"size:20;not null;default:cashier" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

func (u User) PrimaryKey() uint {
	return u.ID
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
