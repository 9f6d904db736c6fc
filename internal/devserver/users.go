package devserver

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/authsession/pkg/credentials"
)

// DefaultBcryptCost is the bcrypt cost for stored password hashes.
const DefaultBcryptCost = 10

// Password length constraints. bcrypt silently truncates at 72 bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email already registered")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 characters")
	ErrEmailRequired      = errors.New("email is required")
	ErrCompanyRequired    = errors.New("company name is required for company accounts")
)

// User is an account known to the dev server.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
	CustomerType credentials.CustomerType
	CompanyName  string
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Profile returns the public view of u.
func (u *User) Profile() *credentials.User {
	return &credentials.User{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		CustomerType: u.CustomerType,
		CompanyName:  u.CompanyName,
	}
}

// UserStore is an in-memory account table keyed by normalized email.
type UserStore struct {
	cost int

	mu    sync.RWMutex
	users map[string]*User
}

// NewUserStore creates an empty store hashing passwords with cost.
// cost 0 selects DefaultBcryptCost.
func NewUserStore(cost int) *UserStore {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &UserStore{cost: cost, users: make(map[string]*User)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword checks the password length limits.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// Create adds an account. The password is hashed; seed.Role defaults to
// "customer" and seed.CustomerType to individual.
func (s *UserStore) Create(seed SeedUser) (*User, error) {
	email := normalizeEmail(seed.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if err := ValidatePassword(seed.Password); err != nil {
		return nil, err
	}
	if seed.CustomerType == "" {
		seed.CustomerType = credentials.CustomerIndividual
	}
	if seed.CustomerType == credentials.CustomerCompany && strings.TrimSpace(seed.CompanyName) == "" {
		return nil, ErrCompanyRequired
	}
	if seed.Role == "" {
		seed.Role = "customer"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    seed.FirstName,
		LastName:     seed.LastName,
		Role:         seed.Role,
		CustomerType: seed.CustomerType,
		CompanyName:  seed.CompanyName,
		CreatedAt:    time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return nil, ErrUserExists
	}
	s.users[email] = user
	cp := *user
	return &cp, nil
}

// Authenticate checks email and password and records the login time.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (s *UserStore) Authenticate(email, password string) (*User, error) {
	s.mu.RLock()
	user, ok := s.users[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	user.LastLogin = time.Now()
	cp := *user
	s.mu.Unlock()
	return &cp, nil
}

// Get returns the account with the given email.
func (s *UserStore) Get(email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// Count returns the number of accounts.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
