package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Permission capability strings carried by roles.
const (
	PermAdmin              = "admin"
	PermAgent              = "agent"
	PermConfidentialView   = "CONFIDENTIAL_VIEW"
	PermExportConfidential = "EXPORT_CONFIDENTIAL"
)

// Actor is the per-request identity every guarded operation receives. It is
// resolved once by the auth middleware: role permissions and team memberships
// are loaded eagerly so access checks never touch the database for the actor
// side.
type Actor struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	RoleName    string   `json:"role"`
	OrgUnitID   *int64   `json:"org_unit_id"`
	ScopeLevel  string   `json:"scope_level"`
	Permissions []string `json:"permissions,omitempty"`
	TeamIDs     []int64  `json:"team_ids,omitempty"`
}

func (a *Actor) HasPermission(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (a *Actor) HasAnyPermission(permissions []string) bool {
	for _, p := range a.Permissions {
		for _, required := range permissions {
			if p == required {
				return true
			}
		}
	}
	return false
}

func (a *Actor) IsAdmin() bool {
	return a.HasPermission(PermAdmin)
}

// IsAgent reports whether the actor may use agent endpoints: members of any
// team qualify, as do users whose role carries the agent capability.
func (a *Actor) IsAgent() bool {
	return len(a.TeamIDs) > 0 || a.HasPermission(PermAgent) || a.IsAdmin()
}

func (a *Actor) MemberOf(teamID int64) bool {
	for _, id := range a.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	GetActor(userID int64) (*Actor, error)
	HashPassword(password string) (string, error)
}

type RepositoryAPI interface {
	GetPasswordForEmail(email string) (passwordHash string, userID string, err error)
	GetActor(userID int64) (*Actor, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}
