package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;size:64" json:"organization_id"`
	Username       string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name           string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email          *string   `gorm:"size:100;unique" json:"email"`
	Password       string    `gorm:"size:255;not null" json:"password"`
	IsActive       *bool     `gorm:"not null" json:"is_active"`
	Role           UserRole  `gorm:"type:enum('A', 'O', 'C');default:C" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

type LoginInfo struct {
	Token            string `json:"token"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	OrganizationId   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	// OpsToken is the JWT for the /internal/ops surface, admins only.
	OpsToken string `json:"ops_token,omitempty"`
}

func LoginCheck(ctx context.Context, username string, password string) (*LoginInfo, error) {
	db := config.GetDB()

	var user User
	// Login runs before any tenant is established.
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx)
	if err := db.WithContext(lookupCtx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, errors.New("invalid username or password")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errors.New("invalid username or password")
	}

	token := uuid.NewString()
	if err := config.SetRedisValue("Token:"+token, user.Username, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}
	if err := config.SetRedisObject("User:"+user.Username, user, utils.GetCacheLifespan()); err != nil {
		return nil, err
	}

	info := &LoginInfo{
		Token:          token,
		Name:           user.Name,
		Role:           string(user.Role),
		OrganizationId: user.OrganizationId,
	}
	if org, err := GetOrganizationById(lookupCtx, db, user.OrganizationId); err == nil {
		info.OrganizationName = org.Name
	}
	if user.Role == UserRoleAdmin {
		// Admins also get the bearer token the /internal/ops routes require.
		if opsToken, err := utils.JwtGenerate(user.ID, string(user.Role)); err == nil {
			info.OpsToken = opsToken
		}
	}
	return info, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token := utils.GetTokenFromContext(ctx)
	if token == "" {
		return false, errors.New("token is required")
	}
	err := config.RemoveRedisKey("Token:" + token)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
