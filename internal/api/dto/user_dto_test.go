package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/staff-console/internal/domain"
)

func TestProfileFromClaims(t *testing.T) {
	assert.Nil(t, ProfileFromClaims(nil))

	exp := time.Unix(1_760_003_600, 0)
	p := ProfileFromClaims(&domain.Claims{SubjectID: 4, SubjectName: "root", RoleID: domain.RoleAdministrator, ExpiresAt: exp.Unix()})
	assert.Equal(t, int64(4), p.ID)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, 1, p.RoleID)
	assert.True(t, exp.Equal(p.ExpiresAt))
}
