package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/diewo77/facturacion/internal/models"
	"github.com/diewo77/facturacion/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService registers users and checks their credentials.
type AuthService struct {
	db   *gorm.DB
	cost int
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db, cost: bcrypt.DefaultCost}
}

// RegisterInput carries the signup form.
type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	v := make(validation.Violations)
	validation.Required("username", in.Username, v)
	validation.MaxLen("username", in.Username, 100, v)
	validation.Required("password", in.Password, v)
	validation.Required("confirm", in.Confirm, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("phone", in.Phone, v)
	if in.Password != "" && in.Confirm != "" {
		validation.Equal("confirm", in.Password, in.Confirm, v)
	}
	if !v.Empty() {
		return nil, invalid(v)
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, internal("check username", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken.with(fmt.Errorf("username %q", in.Username), validation.Violations{"username": "taken"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, internal("hash password", err)
	}
	u := models.User{Username: in.Username, Password: string(hash), Email: in.Email, Phone: in.Phone}
	if err := db.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken.with(err, validation.Violations{"username": "taken"})
		}
		return nil, internal("create user", err)
	}
	log.Printf("user %d registered username=%s", u.ID, u.Username)
	return &u, nil
}

// Login returns the user whose password matches. Unknown users and wrong
// passwords fail alike with ErrInvalidCredentials. Legacy SHA-256 hashes are
// replaced with bcrypt on success.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	db := s.db.WithContext(ctx)
	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, internal("load user", err)
	}

	if isLegacyHash(u.Password) {
		if !legacyMatch(u.Password, password) {
			return nil, ErrInvalidCredentials
		}
		if err := s.upgradeHash(db, &u, password); err != nil {
			// login still succeeds; the hash is upgraded next time
			log.Printf("user %d: hash upgrade failed: %v", u.ID, err)
		}
		return &u, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// UserExists backs the session verifier.
func (s *AuthService) UserExists(ctx context.Context, id uint) bool {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

func (s *AuthService) upgradeHash(db *gorm.DB, u *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	if err := db.Model(u).UpdateColumn("password", string(hash)).Error; err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// isLegacyHash detects unsalted SHA-256 hex digests.
func isLegacyHash(h string) bool {
	if len(h) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}

func legacyMatch(stored, password string) bool {
	sum := sha256.Sum256([]byte(password))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(got)) == 1
}
