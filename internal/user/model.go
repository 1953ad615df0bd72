package user

import "time"

// Role 用户角色
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

// Valid 空值视为合法，由默认值补齐
func (r Role) Valid() bool {
	switch r {
	case "", RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Gender 性别
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// User 用户表
//
// 删除为软删除：IsDeleted 置位，同时给 UserName 追加 "-<id>" 后缀，原用户名可以被重新注册。
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	FirstName       string    `gorm:"size:64" json:"first_name"`
	LastName        string    `gorm:"size:64" json:"last_name"`
	UserName        string    `gorm:"size:128;uniqueIndex;not null" json:"user_name"`
	PassWord        string    `gorm:"size:255" json:"pass_word,omitempty"`
	ConfirmPassWord string    `gorm:"-" json:"confirm_pass_word,omitempty"`
	Enabled         bool      `json:"enabled"`
	Phone           string    `gorm:"size:32" json:"phone"`
	Role            Role      `gorm:"size:16" json:"role"`
	Gender          Gender    `gorm:"size:16" json:"gender"`
	IsDeleted       bool      `gorm:"index" json:"-"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// TableName 表名
func (User) TableName() string {
	return "users"
}

// redact 去掉不应出现在响应里的字段
func (u *User) redact() *User {
	u.PassWord = ""
	u.ConfirmPassWord = ""
	return u
}
