package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

const apiKeyPrefix = "pf_"

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// User is a player account. Billing fields are only ever written through
// SetBilling so the free-plan invariant holds on every mutation.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email       string     `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Password    string     `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role        string     `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Position    string     `gorm:"type:varchar(50);default:''" json:"position" validate:"max=50"`
	Club        string     `gorm:"type:varchar(150);default:''" json:"club" validate:"max=150"`
	Nationality string     `gorm:"type:varchar(100);default:''" json:"nationality" validate:"max=100"`
	DateOfBirth *time.Time `gorm:"type:date;default:null" json:"date_of_birth,omitempty"`
	Bio         string     `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`

	// Lifecycle flags, independent of billing.
	Active  bool `gorm:"default:true;index" json:"active"`
	Deleted bool `gorm:"default:false;index" json:"deleted"`

	Plan                   SubscriptionPlan `gorm:"type:varchar(20);not null;default:'free';index:idx_users_plan_renewal,priority:1" json:"plan"`
	RenewalDate            *time.Time       `gorm:"type:datetime(3);default:null;index:idx_users_plan_renewal,priority:2" json:"renewal_date,omitempty"`
	ProviderSubscriptionID *string          `gorm:"type:varchar(191);default:null;index" json:"provider_subscription_id,omitempty"`

	APIKeyHash   string `gorm:"type:char(64);default:'';index" json:"-"`
	APIKeyPrefix string `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`

	LastLoginAt *time.Time `gorm:"type:datetime(3);default:null" json:"last_login_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a new, not yet persisted user on the free plan.
func CreateUser(name string, email string, password string) (*User, error) {
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     strings.TrimSpace(name),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: pw,
		Role:     ROLE_USER,
		Active:   true,
	}
	u.SetBilling(FreeBilling())

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// IsAdmin reports whether the user holds the elevated role.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// IsVisible reports whether the account may be served to other users.
func (u *User) IsVisible() bool {
	return u.Active && !u.Deleted
}

// Billing returns the billing subset of the record.
func (u *User) Billing() Billing {
	return Billing{
		Plan:                   u.Plan,
		RenewalDate:            u.RenewalDate,
		ProviderSubscriptionID: u.ProviderSubscriptionID,
	}
}

// SetBilling overwrites all billing fields with the normalized value of b.
func (u *User) SetBilling(b Billing) {
	b = b.Normalize()
	u.Plan = b.Plan
	u.RenewalDate = b.RenewalDate
	u.ProviderSubscriptionID = b.ProviderSubscriptionID
}

// HasActiveAPIKey reports whether the user has an API key configured
func (u *User) HasActiveAPIKey() bool {
	return u != nil && u.APIKeyHash != ""
}

// IssueAPIKey generates a new API key, stores its hash on the struct, and returns the raw secret.
// The raw key is never persisted.
func (u *User) IssueAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	rawKey := apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b))
	u.APIKeyHash = HashAPIKey(rawKey)
	u.APIKeyPrefix = rawKey[:16]
	return rawKey, nil
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
