package auth_test

import (
	"context"
	"testing"

	"github.com/meritan/go-curator/internal/auth"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*auth.Service, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)
	return auth.NewService(tc.DB, tc.JWTService), tc
}

func TestRegister(t *testing.T) {
	svc, tc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, auth.RegisterInput{
		Email:    "alice@example.com",
		Password: "Password123",
		Name:     "Alice",
		OrgName:  "Alice Studio",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, models.RoleOwner, resp.User.Role)
	assert.Equal(t, "Alice Studio", resp.User.Organization.Name)

	t.Run("registration creates a fresh org with one owner", func(t *testing.T) {
		var owners int64
		require.NoError(t, tc.DB.Model(&models.User{}).
			Where("organization_id = ? AND role = ?", resp.User.OrganizationID, models.RoleOwner).
			Count(&owners).Error)
		assert.Equal(t, int64(1), owners)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, err := svc.Register(ctx, auth.RegisterInput{
			Email:    "alice@example.com",
			Password: "Password123",
			Name:     "Alice Again",
		})
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})

	t.Run("empty org name defaults to a personal team", func(t *testing.T) {
		resp, err := svc.Register(ctx, auth.RegisterInput{
			Email:    "bob@example.com",
			Password: "Password123",
			Name:     "Bob",
		})
		require.NoError(t, err)
		assert.Equal(t, "Bob's Team", resp.User.Organization.Name)
	})
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterInput{
		Email:    "carol@example.com",
		Password: "Password123",
		Name:     "Carol",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, auth.LoginInput{Email: "carol@example.com", Password: "Password123"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "carol@example.com", resp.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "carol@example.com", Password: "wrong"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.LoginInput{Email: "nobody@example.com", Password: "Password123"})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestTransferOwnership(t *testing.T) {
	svc, tc := newAuthService(t)
	ctx := context.Background()

	member := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)

	require.NoError(t, svc.TransferOwnership(ctx, tc.Org.ID, tc.User.ID, member.ID))

	// Exactly one owner survives the swap
	var owners []models.User
	require.NoError(t, tc.DB.Where("organization_id = ? AND role = ?", tc.Org.ID, models.RoleOwner).Find(&owners).Error)
	require.Len(t, owners, 1)
	assert.Equal(t, member.ID, owners[0].ID)

	t.Run("former owner cannot transfer again", func(t *testing.T) {
		err := svc.TransferOwnership(ctx, tc.Org.ID, tc.User.ID, member.ID)
		assert.ErrorIs(t, err, auth.ErrLastOwner)
	})

	t.Run("users outside the org are rejected", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		outsider := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleMember)

		err := svc.TransferOwnership(ctx, tc.Org.ID, member.ID, outsider.ID)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}
