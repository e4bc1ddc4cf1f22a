// Package model contains domain models passed between layers.
package model

// Table names in the hosted store.
const (
	TableLocation         = "location"
	TableLocationRequests = "location_requests"
)

// Credentials carries an email/password pair for a single sign-in call.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the part of the provider's identity kept with a stored session.
type User struct {
	ID               string         `json:"id"`
	Aud              string         `json:"aud,omitempty"`
	Role             string         `json:"role,omitempty"`
	Email            string         `json:"email,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	EmailConfirmedAt string         `json:"email_confirmed_at,omitempty"`
	LastSignInAt     string         `json:"last_sign_in_at,omitempty"`
	CreatedAt        string         `json:"created_at,omitempty"`
	UpdatedAt        string         `json:"updated_at,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
}

// Session is the token bundle issued by the auth provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// UserID returns the identifier stamped on records as reviewer.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// AuthResponse is the sign-in payload returned to API callers. User and
// Session are the provider's objects as received, unknown fields included.
type AuthResponse struct {
	User         map[string]any `json:"user"`
	Session      map[string]any `json:"session"`
	WeakPassword any            `json:"weakPassword,omitempty"`
}

// Record is a row-shaped key/value mapping with no local schema.
type Record map[string]any

// Filter is an equality predicate on a single column.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}
