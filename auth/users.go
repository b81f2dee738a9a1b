package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"pflanzen/logging"
)

// User 用户，密码以 bcrypt 哈希保存
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	Email        string
	Roles        []string
}

// UserSeed 初始用户（明文密码仅在构造时使用）
type UserSeed struct {
	ID       string
	Username string
	Password string
	Email    string
	Roles    []string
}

// DefaultUsers 默认用户 admin、mitarbeiter、kunde
func DefaultUsers() []UserSeed {
	return []UserSeed{
		{ID: "20000000-0000-0000-0000-000000000001", Username: "admin", Password: "p", Email: "admin@acme.com",
			Roles: []string{RoleAdmin, RoleMitarbeiter, RoleKunde}},
		{ID: "20000000-0000-0000-0000-000000000002", Username: "mitarbeiter", Password: "p", Email: "mitarbeiter@acme.com",
			Roles: []string{RoleMitarbeiter, RoleKunde}},
		{ID: "20000000-0000-0000-0000-000000000003", Username: "kunde", Password: "p", Email: "kunde@acme.com",
			Roles: []string{RoleKunde}},
	}
}

// UserService 内存用户服务
type UserService struct {
	users  []*User
	logger logging.Logger
}

// NewUserService 哈希初始密码并创建用户服务；cost 为 0 时使用 bcrypt.DefaultCost
func NewUserService(seeds []UserSeed, roles *RoleService, cost int) (*UserService, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	s := &UserService{logger: logging.GetLogger().WithFields(logging.String("component", "auth.users"))}
	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), cost)
		if err != nil {
			return nil, err
		}
		s.users = append(s.users, &User{
			ID:           seed.ID,
			Username:     seed.Username,
			PasswordHash: hash,
			Email:        seed.Email,
			Roles:        roles.Normalize(seed.Roles),
		})
	}
	s.logger.Info(context.Background(), "users loaded", logging.Int("count", len(s.users)))
	return s, nil
}

func (s *UserService) FindByUsername(username string) *User {
	return s.find(func(u *User) bool { return u.Username == username })
}

func (s *UserService) FindByID(id string) *User {
	return s.find(func(u *User) bool { return u.ID == id })
}

func (s *UserService) FindByEmail(email string) *User {
	return s.find(func(u *User) bool { return u.Email == email })
}

// Authenticate 校验用户名与密码
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u := s.FindByUsername(username)
	if u == nil || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		s.logger.Debug(ctx, "login failed", logging.String("username", username))
		return nil, &AuthorizationInvalid{Username: username}
	}
	return u, nil
}

func (s *UserService) find(match func(u *User) bool) *User {
	for _, u := range s.users {
		if match(u) {
			return u
		}
	}
	return nil
}
