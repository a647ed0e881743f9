package db_test

import (
	"context"
	"testing"

	"ticketnepal/internal/models"
	"ticketnepal/internal/testutil"
	"ticketnepal/internal/users/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUser(t *testing.T) {
	bunDB := testutil.NewDB(t)
	users := db.NewDB(bunDB)
	ctx := context.Background()

	staff := testutil.CreateUser(t, bunDB, models.RoleStaff)

	got, err := users.FindUser(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, staff.Email, got.Email)
	assert.Equal(t, models.RoleStaff, got.Role)

	got, err = users.FindUserByEmail(ctx, "  "+staff.Email+" ")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, got.ID)

	_, err = users.FindUser(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindUser_NormalizesLegacyRoles(t *testing.T) {
	bunDB := testutil.NewDB(t)
	users := db.NewDB(bunDB)
	ctx := context.Background()

	u := testutil.CreateUser(t, bunDB, models.RoleCustomer)
	_, err := bunDB.NewUpdate().Model((*models.User)(nil)).
		Set("role = ?", "user").Where("id = ?", u.ID).Exec(ctx)
	require.NoError(t, err)

	got, err := users.FindUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, got.Role)

	_, err = bunDB.NewUpdate().Model((*models.User)(nil)).
		Set("role = ?", "wizard").Where("id = ?", u.ID).Exec(ctx)
	require.NoError(t, err)

	_, err = users.FindUser(ctx, u.ID)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
