package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pet-health-api/internal/domain/accessgrants"
	"pet-health-api/internal/domain/accounts"
	"pet-health-api/internal/domain/pets"
	"pet-health-api/internal/domain/records"
	"pet-health-api/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func TestAccountRepo_EmailCaseInsensitive(t *testing.T) {
	repo := NewAccountRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, accounts.Account{ID: "a1", Email: "Ana@Example.com", Role: auth.RolePetOwner, CreatedAt: t0}))
	err := repo.Create(ctx, accounts.Account{ID: "a2", Email: "ana@example.COM", Role: auth.RolePetOwner})
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)

	a, err := repo.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, "ana@example.com", a.Email)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, accounts.ErrNotFound)
	assert.ErrorIs(t, repo.SetApproved(ctx, "missing", true, t0), accounts.ErrNotFound)
}

func TestAccountRepo_ListByRoleNewestFirst(t *testing.T) {
	repo := NewAccountRepo()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, accounts.Account{
			ID:        fmt.Sprintf("v%d", i),
			Email:     fmt.Sprintf("v%d@example.com", i),
			Role:      auth.RoleVeterinarian,
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, accounts.Account{ID: "o", Email: "o@example.com", Role: auth.RolePetOwner}))
	require.NoError(t, repo.SetApproved(ctx, "v1", true, t0))

	vets, err := repo.ListByRole(ctx, auth.RoleVeterinarian)
	require.NoError(t, err)
	require.Len(t, vets, 3)
	assert.Equal(t, "v2", vets[0].ID)
	assert.Equal(t, "v0", vets[2].ID)
	assert.True(t, vets[1].Approved)
}

func TestGrantRepo_OnePendingUnderConcurrency(t *testing.T) {
	repo := NewAccessGrantsRepo()
	ctx := context.Background()

	const n = 32
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, accessgrants.Grant{
				ID:        fmt.Sprintf("g%d", i),
				PetID:     "pet-1",
				VetUserID: "vet-1",
				Status:    accessgrants.StatusPending,
			})
			switch {
			case err == nil:
				ok.Add(1)
			case err == accessgrants.ErrDuplicatePending:
				dup.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), dup.Load())

	// otra mascota u otro vet no chocan
	require.NoError(t, repo.Create(ctx, accessgrants.Grant{ID: "x1", PetID: "pet-2", VetUserID: "vet-1", Status: accessgrants.StatusPending}))
	require.NoError(t, repo.Create(ctx, accessgrants.Grant{ID: "x2", PetID: "pet-1", VetUserID: "vet-2", Status: accessgrants.StatusPending}))
}

func TestGrantRepo_TransitionCAS(t *testing.T) {
	repo := NewAccessGrantsRepo()
	ctx := context.Background()

	g := accessgrants.Grant{ID: "g1", PetID: "pet-1", VetUserID: "vet-1", Status: accessgrants.StatusPending}
	require.NoError(t, repo.Create(ctx, g))

	approved := g
	approved.Status = accessgrants.StatusApproved
	rejected := g
	rejected.Status = accessgrants.StatusRejected

	var wins atomic.Int32
	var wg sync.WaitGroup
	for _, next := range []accessgrants.Grant{approved, rejected, approved, rejected} {
		wg.Add(1)
		go func(next accessgrants.Grant) {
			defer wg.Done()
			if err := repo.Transition(ctx, next, accessgrants.StatusPending); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, accessgrants.ErrStaleStatus)
			}
		}(next)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	assert.ErrorIs(t, repo.Transition(ctx, accessgrants.Grant{ID: "missing"}, accessgrants.StatusPending), accessgrants.ErrNotFound)

	// tras salir de pending se puede volver a pedir
	require.NoError(t, repo.Create(ctx, accessgrants.Grant{ID: "g2", PetID: "pet-1", VetUserID: "vet-1", Status: accessgrants.StatusPending}))
}

func TestGrantRepo_HasApprovedAndLists(t *testing.T) {
	repo := NewAccessGrantsRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, accessgrants.Grant{ID: "g1", PetID: "p1", OwnerUserID: "o1", VetUserID: "v1", Status: accessgrants.StatusPending}))
	ok, err := repo.HasApproved(ctx, "p1", "v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Transition(ctx, accessgrants.Grant{ID: "g1", PetID: "p1", OwnerUserID: "o1", VetUserID: "v1", Status: accessgrants.StatusApproved}, accessgrants.StatusPending))
	ok, err = repo.HasApproved(ctx, "p1", "v1")
	require.NoError(t, err)
	assert.True(t, ok)

	byPet, _ := repo.ListByPet(ctx, "p1")
	byVet, _ := repo.ListByVet(ctx, "v1")
	byOwner, _ := repo.ListByOwner(ctx, "o1")
	assert.Len(t, byPet, 1)
	assert.Len(t, byVet, 1)
	assert.Len(t, byOwner, 1)
}

func TestPetRepo_OwnerNeverChanges(t *testing.T) {
	repo := NewPetRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pets.Pet{ID: "p1", OwnerUserID: "o1", Name: "Luna", CreatedAt: t0}))
	require.NoError(t, repo.Update(ctx, pets.Pet{ID: "p1", OwnerUserID: "o2", Name: "Luna II"}))

	p, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "o1", p.OwnerUserID)
	assert.Equal(t, "Luna II", p.Name)

	assert.ErrorIs(t, repo.Update(ctx, pets.Pet{ID: "missing"}), pets.ErrNotFound)
}

func TestPetRepo_ListByOwnerOrder(t *testing.T) {
	repo := NewPetRepo()
	ctx := context.Background()

	seed := []pets.Pet{
		{ID: "p3", OwnerUserID: "o1", Name: "Toby", CreatedAt: t0.Add(time.Hour)},
		{ID: "p2", OwnerUserID: "o1", Name: "Luna", CreatedAt: t0},
		{ID: "p1", OwnerUserID: "o1", Name: "Luna", CreatedAt: t0},
		{ID: "p0", OwnerUserID: "o1", Name: "Coco", CreatedAt: t0},
		{ID: "px", OwnerUserID: "o2", Name: "Ajena", CreatedAt: t0},
	}
	for _, p := range seed {
		require.NoError(t, repo.Create(ctx, p))
	}

	got, err := repo.ListByOwner(ctx, " o1 ")
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p0", "p1", "p2", "p3"}, ids)

	none, err := repo.ListByOwner(ctx, "  ")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRecordRepo_ListFilter(t *testing.T) {
	repo := NewRecordRepo()
	ctx := context.Background()

	seed := []records.Record{
		{ID: "r1", PetID: "p1", Type: records.TypeVaccination, Title: "Rabia", Date: t0, Status: records.StatusActive},
		{ID: "r2", PetID: "p1", Type: records.TypeCheckup, Title: "Control", Notes: "todo bien", Date: t0.AddDate(0, 0, 1), Status: records.StatusActive},
		{ID: "r3", PetID: "p1", Type: records.TypeCheckup, Title: "Control", Date: t0.AddDate(0, 0, 2), Status: records.StatusVoided},
		{ID: "r4", PetID: "p2", Type: records.TypeCheckup, Title: "Otro", Date: t0, Status: records.StatusActive},
	}
	for _, rec := range seed {
		require.NoError(t, repo.Create(ctx, rec))
	}

	items, err := repo.ListByPet(ctx, "p1", records.ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r2", items[0].ID)

	items, _ = repo.ListByPet(ctx, "p1", records.ListFilter{IncludeVoided: true})
	assert.Len(t, items, 3)

	items, _ = repo.ListByPet(ctx, "p1", records.ListFilter{Types: []records.RecordType{records.TypeVaccination}})
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].ID)

	from := t0.AddDate(0, 0, 1)
	items, _ = repo.ListByPet(ctx, "p1", records.ListFilter{From: &from})
	require.Len(t, items, 1)
	assert.Equal(t, "r2", items[0].ID)

	items, _ = repo.ListByPet(ctx, "p1", records.ListFilter{Query: "BIEN"})
	require.Len(t, items, 1)

	items, _ = repo.ListByPet(ctx, "p1", records.ListFilter{Limit: 1, IncludeVoided: true})
	require.Len(t, items, 1)
	assert.Equal(t, "r3", items[0].ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, records.ErrNotFound)
}
