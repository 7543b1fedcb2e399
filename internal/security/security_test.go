package security

import (
	"testing"
	"time"

	"rentacar-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager(t *testing.T) {
	manager := NewTokenManager(testSecret, time.Hour)
	user := &domain.User{ID: 42, Email: "ana@example.com", Role: domain.UserRoleClerk}

	t.Run("Roundtrip", func(t *testing.T) {
		token, expiresAt, err := manager.GenerateAccessToken(user)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

		claims, err := manager.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, domain.UserRoleClerk, claims.Role)
		assert.Equal(t, domain.Actor{UserID: 42, Role: domain.UserRoleClerk}, claims.Actor())
	})

	t.Run("Expired", func(t *testing.T) {
		expired := &tokenManager{secret: []byte(testSecret), ttl: time.Minute, now: func() time.Time {
			return time.Now().Add(-time.Hour)
		}}
		token, _, err := expired.GenerateAccessToken(user)
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
		token, _, err := other.GenerateAccessToken(user)
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong algorithm", func(t *testing.T) {
		claims := UserClaims{UserID: 1, Role: domain.UserRoleAdmin, Type: TokenTypeAccess}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := manager.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "battery staple"))
	assert.False(t, ValidPassword("short"))
	assert.True(t, ValidPassword("long enough"))
}

func TestCanPerform(t *testing.T) {
	client := domain.Actor{UserID: 1, Role: domain.UserRoleClient}
	otherClient := domain.Actor{UserID: 2, Role: domain.UserRoleClient}
	clerk := domain.Actor{UserID: 3, Role: domain.UserRoleClerk}
	admin := domain.Actor{UserID: 4, Role: domain.UserRoleAdmin}
	own := Owned(client.UserID)

	tests := []struct {
		name     string
		actor    domain.Actor
		action   Action
		resource Resource
		expected bool
	}{
		{"client books for self", client, ActionCreateReservation, own, true},
		{"client cannot book on behalf", client, ActionBookOnBehalf, Resource{}, false},
		{"clerk books on behalf", clerk, ActionBookOnBehalf, Resource{}, true},
		{"client cannot set price", client, ActionSetExplicitPrice, Resource{}, false},
		{"owner views reservation", client, ActionViewReservation, own, true},
		{"other client cannot view", otherClient, ActionViewReservation, own, false},
		{"clerk views any reservation", clerk, ActionViewReservation, own, true},
		{"owner cancels", client, ActionCancelReservation, own, true},
		{"owner cannot pick up", client, ActionTransitionReservation, own, false},
		{"clerk transitions", clerk, ActionTransitionReservation, own, true},
		{"clerk cannot export", clerk, ActionExportReservations, Resource{}, false},
		{"admin exports", admin, ActionExportReservations, Resource{}, true},
		{"client cannot record damage", client, ActionRecordDamage, own, false},
		{"owner deletes document", client, ActionDeleteDocument, own, true},
		{"clerk cannot delete document", clerk, ActionDeleteDocument, own, false},
		{"clerk reviews documents", clerk, ActionReviewDocuments, Resource{}, true},
		{"clerk cannot view stats", clerk, ActionViewStats, Resource{}, false},
		{"admin views logs", admin, ActionViewLogs, Resource{}, true},
		{"ownerless resource", client, ActionViewReservation, Resource{}, false},
		{"unknown action", admin, Action("nuke"), Resource{}, false},
		{"invalid role", domain.Actor{UserID: 9, Role: "GUEST"}, ActionCreateReservation, Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanPerform(tt.actor, tt.action, tt.resource))
		})
	}

	assert.NoError(t, Authorize(admin, ActionManageUsers, Resource{}))
	assert.Equal(t, domain.ErrorKindForbidden, domain.KindOf(Authorize(client, ActionManageUsers, Resource{})))
}
