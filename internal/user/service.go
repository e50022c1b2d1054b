package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"shopassist/internal/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 8

var (
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
)

// PasswordHasher 密码哈希接口
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// Service 用户服务
type Service struct {
	db     *gorm.DB
	hasher PasswordHasher
}

// NewService 创建用户服务
func NewService(db *gorm.DB, hasher PasswordHasher) *Service {
	return &Service{db: db, hasher: hasher}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required"`
}

// NormalizeEmail 邮箱去空白并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 注册新用户
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	email := NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: enter a valid email address", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	u := &User{
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	logger.Info("用户注册成功", zap.Uint("user_id", u.ID))
	return u, nil
}

// Authenticate 校验邮箱与密码，账户停用或密码错误都返回 ErrInvalidCredentials
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}

	if !u.IsActive || !s.hasher.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// GetByID 按 ID 查询用户
func (s *Service) GetByID(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &u, nil
}

// EnsureStaff 创建或提升员工账户（用于初始化数据）
func (s *Service) EnsureStaff(ctx context.Context, email, fullName, password string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).Model(&u).Update("is_staff", true).Error; err != nil {
			return nil, fmt.Errorf("更新员工标记失败: %w", err)
		}
		u.IsStaff = true
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := s.Register(ctx, &RegisterRequest{Email: email, FullName: fullName, Password: password})
		if err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Model(created).Update("is_staff", true).Error; err != nil {
			return nil, fmt.Errorf("更新员工标记失败: %w", err)
		}
		created.IsStaff = true
		return created, nil
	default:
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
}
