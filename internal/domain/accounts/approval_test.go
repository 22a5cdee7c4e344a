package accounts

import (
	"context"
	"net/http"
	"testing"

	"pet-health-api/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAdmin = auth.Actor{ID: "admin-1", Role: auth.RoleAdmin}

func TestApproveReject_Cycle(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	vet := mustRegister(t, svc, "vet@example.com", auth.RoleVeterinarian)

	a, err := svc.ApproveVeterinarian(ctx, testAdmin, vet.ID)
	require.NoError(t, err)
	assert.True(t, a.Approved)

	// idempotente: no vuelve a escribir
	writes := repo.writes
	a, err = svc.ApproveVeterinarian(ctx, testAdmin, vet.ID)
	require.NoError(t, err)
	assert.True(t, a.Approved)
	assert.Equal(t, writes, repo.writes)

	a, err = svc.RejectVeterinarian(ctx, testAdmin, vet.ID)
	require.NoError(t, err)
	assert.False(t, a.Approved)

	// rechazado == pendiente, se puede volver a aprobar
	a, err = svc.ApproveVeterinarian(ctx, testAdmin, vet.ID)
	require.NoError(t, err)
	assert.True(t, a.Approved)

	stored, err := repo.GetByID(ctx, vet.ID)
	require.NoError(t, err)
	assert.True(t, stored.Approved)
}

func TestApprove_Guards(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	owner := mustRegister(t, svc, "owner@example.com", auth.RolePetOwner)
	vet := mustRegister(t, svc, "vet@example.com", auth.RoleVeterinarian)

	_, err := svc.ApproveVeterinarian(ctx, testAdmin, "missing")
	assertStatus(t, http.StatusNotFound, err)

	_, err = svc.ApproveVeterinarian(ctx, testAdmin, owner.ID)
	assertStatus(t, http.StatusBadRequest, err)

	_, err = svc.RejectVeterinarian(ctx, testAdmin, owner.ID)
	assertStatus(t, http.StatusBadRequest, err)

	for _, actor := range []auth.Actor{
		{ID: owner.ID, Role: auth.RolePetOwner},
		{ID: vet.ID, Role: auth.RoleVeterinarian},
	} {
		_, err = svc.ApproveVeterinarian(ctx, actor, vet.ID)
		assertStatus(t, http.StatusForbidden, err)
		_, err = svc.RejectVeterinarian(ctx, actor, vet.ID)
		assertStatus(t, http.StatusForbidden, err)
	}

	got, err := svc.Get(ctx, vet.ID)
	require.NoError(t, err)
	assert.False(t, got.Approved)
}

func TestListVeterinarians_And_Stats(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	v1 := mustRegister(t, svc, "v1@example.com", auth.RoleVeterinarian)
	v2 := mustRegister(t, svc, "v2@example.com", auth.RoleVeterinarian)
	v3 := mustRegister(t, svc, "v3@example.com", auth.RoleVeterinarian)
	mustRegister(t, svc, "o1@example.com", auth.RolePetOwner)
	mustRegister(t, svc, "o2@example.com", auth.RolePetOwner)

	_, err := svc.ApproveVeterinarian(ctx, testAdmin, v2.ID)
	require.NoError(t, err)

	all, err := svc.ListVeterinarians(ctx, testAdmin, VetFilterAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// más nuevos primero
	assert.Equal(t, []string{v3.ID, v2.ID, v1.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	pending, err := svc.ListVeterinarians(ctx, testAdmin, VetFilterPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := svc.ListVeterinarians(ctx, testAdmin, VetFilterApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, v2.ID, approved[0].ID)

	dir, err := svc.ListApprovedVets(ctx)
	require.NoError(t, err)
	require.Len(t, dir, 1)

	st, err := svc.Stats(ctx, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalVets: 3, ApprovedVets: 1, PendingVets: 2, TotalOwners: 2}, st)

	_, err = svc.Stats(ctx, auth.Actor{ID: "x", Role: auth.RolePetOwner})
	assertStatus(t, http.StatusForbidden, err)
	_, err = svc.ListVeterinarians(ctx, auth.Actor{ID: "x", Role: auth.RoleVeterinarian}, VetFilterAll)
	assertStatus(t, http.StatusForbidden, err)
}

func TestParseVetFilter(t *testing.T) {
	f, ok := ParseVetFilter("")
	assert.True(t, ok)
	assert.Equal(t, VetFilterAll, f)

	f, ok = ParseVetFilter("Pending")
	assert.True(t, ok)
	assert.Equal(t, VetFilterPending, f)

	_, ok = ParseVetFilter("rejected")
	assert.False(t, ok)
}
