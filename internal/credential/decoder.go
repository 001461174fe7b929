package credential

import (
	"bytes"
	"encoding/json"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/staff-console/internal/domain"
)

// segmentParser only decodes segments; it is never asked to verify a signature.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// payload mirrors the middle segment written by the backend. Older backends
// emit staff_name instead of user_name.
type payload struct {
	UserID    int64            `json:"userId"`
	UserName  string           `json:"user_name"`
	StaffName string           `json:"staff_name"`
	RoleID    domain.Role      `json:"role_id"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

// Decode reads the claims out of a raw credential token without verifying its signature.
// Absent, malformed or undecodable input yields (nil, false); Decode never panics.
//
// The signature is trusted to have been checked by the backend that set the cookie; the
// decoded claims only drive local admission decisions.
func Decode(raw string) (*domain.Claims, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, false
	}

	segment, err := segmentParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}
	segment = bytes.TrimSpace(segment)
	if len(segment) == 0 || segment[0] != '{' {
		return nil, false
	}

	var p payload
	if err := json.Unmarshal(segment, &p); err != nil {
		return nil, false
	}

	claims := &domain.Claims{
		SubjectID:   p.UserID,
		SubjectName: p.UserName,
		RoleID:      p.RoleID,
	}
	if claims.SubjectName == "" {
		claims.SubjectName = p.StaffName
	}
	if p.IssuedAt != nil {
		claims.IssuedAt = p.IssuedAt.Unix()
	}
	if p.ExpiresAt != nil {
		claims.ExpiresAt = p.ExpiresAt.Unix()
	}
	return claims, true
}
