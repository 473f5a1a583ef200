package ownership_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/meritan/go-curator/internal/database/models"
	"github.com/meritan/go-curator/internal/ownership"
	"github.com/meritan/go-curator/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOwned(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	resolver := ownership.NewResolver(tc.DB)
	other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)
	product := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Chair")

	t.Run("owner resolves", func(t *testing.T) {
		var p models.Product
		err := resolver.ResolveOwned(ctx, &p, product.ID, tc.User.ID)
		require.NoError(t, err)
		assert.Equal(t, product.ID, p.ID)
		assert.Equal(t, "Chair", p.Name)
	})

	t.Run("missing entity is not found", func(t *testing.T) {
		var p models.Product
		err := resolver.ResolveOwned(ctx, &p, uuid.New(), tc.User.ID)
		assert.ErrorIs(t, err, ownership.ErrNotFound)
	})

	t.Run("existing entity with a different owner is not owned", func(t *testing.T) {
		var p models.Product
		err := resolver.ResolveOwned(ctx, &p, product.ID, other.ID)
		assert.ErrorIs(t, err, ownership.ErrNotOwned)
	})
}

func TestResolveDependent(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	resolver := ownership.NewResolver(tc.DB)
	other := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)

	myProduct := testutil.CreateTestProduct(t, tc.DB, tc.User.ID, "Mine")
	otherProduct := testutil.CreateTestProduct(t, tc.DB, other.ID, "Theirs")
	file := testutil.CreateTestFile(t, tc.DB, myProduct.ID, models.FileKindImage)
	strayFile := testutil.CreateTestFile(t, tc.DB, otherProduct.ID, models.FileKindImage)

	t.Run("file under owned product resolves", func(t *testing.T) {
		var p models.Product
		var f models.File
		err := resolver.ResolveDependent(ctx, &p, myProduct.ID, tc.User.ID, &f, file.ID)
		require.NoError(t, err)
		assert.Equal(t, file.ID, f.ID)
	})

	t.Run("parent not owned fails on the first hop", func(t *testing.T) {
		var p models.Product
		var f models.File
		err := resolver.ResolveDependent(ctx, &p, otherProduct.ID, tc.User.ID, &f, strayFile.ID)
		assert.ErrorIs(t, err, ownership.ErrNotOwned)
	})

	t.Run("missing file is not found", func(t *testing.T) {
		var p models.Product
		var f models.File
		err := resolver.ResolveDependent(ctx, &p, myProduct.ID, tc.User.ID, &f, uuid.New())
		assert.ErrorIs(t, err, ownership.ErrNotFound)
	})

	t.Run("file under someone else's product is rejected on the second hop", func(t *testing.T) {
		var p models.Product
		var f models.File
		err := resolver.ResolveDependent(ctx, &p, myProduct.ID, tc.User.ID, &f, strayFile.ID)
		assert.ErrorIs(t, err, ownership.ErrDependentNotOwned)
	})
}

func TestOrgPredicates(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := testutil.TestContext(t)

	resolver := ownership.NewResolver(tc.DB)
	member := testutil.CreateTestUser(t, tc.DB, tc.Org, models.RoleMember)

	otherOrg := testutil.CreateTestOrg(t, tc.DB)
	outsider := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleOwner)

	t.Run("owner passes both predicates", func(t *testing.T) {
		org, err := resolver.OrgAsOwner(ctx, tc.Org.ID, tc.User.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.Org.ID, org.ID)

		_, err = resolver.OrgAsMember(ctx, tc.Org.ID, tc.User.ID)
		assert.NoError(t, err)
	})

	t.Run("member passes membership but not ownership", func(t *testing.T) {
		_, err := resolver.OrgAsMember(ctx, tc.Org.ID, member.ID)
		assert.NoError(t, err)

		_, err = resolver.OrgAsOwner(ctx, tc.Org.ID, member.ID)
		assert.ErrorIs(t, err, ownership.ErrNotOrgOwner)
	})

	t.Run("outsider fails membership", func(t *testing.T) {
		_, err := resolver.OrgAsMember(ctx, tc.Org.ID, outsider.ID)
		assert.ErrorIs(t, err, ownership.ErrNotOrgMember)
	})

	t.Run("unknown org is not found", func(t *testing.T) {
		_, err := resolver.OrgAsOwner(ctx, uuid.New(), tc.User.ID)
		assert.ErrorIs(t, err, ownership.ErrNotFound)
	})
}
