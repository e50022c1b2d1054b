package user

import (
	"strings"
	"time"
	"unicode/utf8"
)

// User 商城账户，邮箱即登录名
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"size:254;uniqueIndex;not null"`
	FullName     string    `json:"full_name" gorm:"size:150"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	IsStaff      bool      `json:"is_staff" gorm:"not null;default:false"`
	IsSuperuser  bool      `json:"is_superuser" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// Initials 姓名前两个单词的首字母（大写），无姓名时取邮箱首字母
func (u *User) Initials() string {
	var b strings.Builder
	for i, word := range strings.Fields(u.FullName) {
		if i == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteString(strings.ToUpper(string(r)))
	}
	if b.Len() > 0 {
		return b.String()
	}
	if u.Email == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(u.Email)
	return strings.ToUpper(string(r))
}

// Profile 对外返回的用户信息
type Profile struct {
	ID       uint     `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Initials string   `json:"initials"`
	IsStaff  bool     `json:"is_staff"`
	Roles    []string `json:"roles,omitempty"`
}

// NewProfile 构造用户信息
func NewProfile(u *User) Profile {
	return Profile{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Initials: u.Initials(),
		IsStaff:  u.IsStaff || u.IsSuperuser,
	}
}
