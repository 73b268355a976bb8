package middleware

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-report-portal/internal/models"
)

// ProfileHeader carries the profile blob the UI cached at login.
const ProfileHeader = "X-User-Profile"

// ProfileDecoder resolves the viewer's role from the cached profile blob.
// With a signing secret only HS256 tokens are trusted; without one the blob
// is plain base64url JSON. Anything unreadable resolves to RoleNone.
type ProfileDecoder struct {
	secret []byte
}

// NewProfileDecoder constructs a decoder; an empty secret accepts unsigned blobs.
func NewProfileDecoder(secret string) *ProfileDecoder {
	return &ProfileDecoder{secret: []byte(secret)}
}

// Role decodes the blob and returns the resolved role.
func (d *ProfileDecoder) Role(blob string) models.Role {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return models.RoleNone
	}
	if len(d.secret) > 0 {
		return d.signedRole(blob)
	}
	profile, ok := decodeProfile(blob)
	if !ok {
		return models.RoleNone
	}
	return profile.ResolvedRole()
}

type profileClaims struct {
	Role  string `json:"role,omitempty"`
	Cargo string `json:"cargo,omitempty"`
	jwt.RegisteredClaims
}

func (d *ProfileDecoder) signedRole(token string) models.Role {
	claims := &profileClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return d.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return models.RoleNone
	}
	return models.UserProfile{Role: claims.Role, Cargo: claims.Cargo}.ResolvedRole()
}

func decodeProfile(blob string) (models.UserProfile, bool) {
	var profile models.UserProfile
	raw := []byte(blob)
	if !strings.HasPrefix(blob, "{") {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(blob, "="))
		if err != nil {
			decoded, err = base64.StdEncoding.DecodeString(blob)
			if err != nil {
				return profile, false
			}
		}
		raw = decoded
	}
	if err := json.Unmarshal(raw, &profile); err != nil {
		return profile, false
	}
	return profile, true
}
