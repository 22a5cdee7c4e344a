package records

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"pet-health-api/internal/domain/guard"
	"pet-health-api/internal/domain/records/details"
	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	mu   sync.Mutex
	byID map[string]Record
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Record{}}
}

func (r *testRepo) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	return nil
}

func (r *testRepo) Update(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rec.ID]; !ok {
		return ErrNotFound
	}
	r.byID[rec.ID] = rec
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (r *testRepo) ListByPet(_ context.Context, petID string, f ListFilter) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0)
	for _, rec := range r.byID {
		if rec.PetID != petID {
			continue
		}
		if !f.IncludeVoided && rec.Status == StatusVoided {
			continue
		}
		if len(f.Types) > 0 {
			ok := false
			for _, t := range f.Types {
				ok = ok || rec.Type == t
			}
			if !ok {
				continue
			}
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(rec.Title+" "+rec.Notes), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type fakePets map[string]string // petID -> ownerID

func (f fakePets) GuardTarget(_ context.Context, petID string) (guard.Pet, error) {
	owner, ok := f[petID]
	if !ok {
		return guard.Pet{}, apperr.NotFound("pet not found")
	}
	return guard.Pet{ID: petID, OwnerID: owner}, nil
}

type fakeGrants struct {
	mu       sync.Mutex
	approved map[string]bool // petID|vetID
}

func (f *fakeGrants) set(petID, vetID string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved[petID+"|"+vetID] = ok
}

func (f *fakeGrants) HasApprovedGrant(_ context.Context, petID, vetUserID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approved[petID+"|"+vetUserID], nil
}

var (
	owner1 = auth.Actor{ID: "owner-1", Role: auth.RolePetOwner}
	owner2 = auth.Actor{ID: "owner-2", Role: auth.RolePetOwner}
	vet1   = auth.Actor{ID: "vet-1", Role: auth.RoleVeterinarian}
	admin1 = auth.Actor{ID: "admin-1", Role: auth.RoleAdmin}
)

func newTestService() (*Service, *testRepo, *fakeGrants) {
	repo := newTestRepo()
	grants := &fakeGrants{approved: map[string]bool{}}
	pets := fakePets{"pet-1": owner1.ID, "pet-2": owner2.ID}
	svc := NewService(repo, pets, guard.New(grants))
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo, grants
}

func assertStatus(t *testing.T, want int, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apperr.HTTPStatus(err), err.Error())
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestCreate_OwnerAndVet(t *testing.T) {
	svc, _, grants := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, owner1, "pet-1", CreateInput{
		Type:  "Vaccination",
		Date:  day(1),
		Title: "Antirrábica",
		Details: Details{Vaccination: &details.Vaccination{
			Name:        "Rabia",
			BatchNumber: "L-123",
		}},
		Cost: &Cost{Amount: 25},
	})
	require.NoError(t, err)
	assert.Equal(t, TypeVaccination, rec.Type)
	assert.Equal(t, StatusActive, rec.Status)
	assert.Equal(t, owner1.ID, rec.CreatedBy)
	assert.Empty(t, rec.VeterinarianID)
	require.NotNil(t, rec.Cost)
	assert.Equal(t, DefaultCurrency, rec.Cost.Currency)

	// vet sin grant
	_, err = svc.Create(ctx, vet1, "pet-1", CreateInput{Type: "checkup", Date: day(2), Title: "Control"})
	assertStatus(t, http.StatusForbidden, err)

	grants.set("pet-1", vet1.ID, true)
	rec, err = svc.Create(ctx, vet1, "pet-1", CreateInput{Type: "checkup", Date: day(2), Title: "Control"})
	require.NoError(t, err)
	assert.Equal(t, vet1.ID, rec.VeterinarianID)
	assert.Equal(t, vet1.ID, rec.CreatedBy)

	// admin solo lee
	_, err = svc.Create(ctx, admin1, "pet-1", CreateInput{Type: "other", Date: day(3), Title: "x"})
	assertStatus(t, http.StatusForbidden, err)

	_, err = svc.Create(ctx, owner1, "missing", CreateInput{Type: "other", Date: day(3), Title: "x"})
	assertStatus(t, http.StatusNotFound, err)

	_, err = svc.Create(ctx, auth.Actor{}, "pet-1", CreateInput{Type: "other", Date: day(3), Title: "x"})
	assertStatus(t, http.StatusUnauthorized, err)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"bad type", CreateInput{Type: "grooming", Date: day(1), Title: "x"}},
		{"missing date", CreateInput{Type: "other", Title: "x"}},
		{"missing title", CreateInput{Type: "other", Date: day(1)}},
		{"details mismatch", CreateInput{Type: "checkup", Date: day(1), Title: "x",
			Details: Details{Surgery: &details.Surgery{Procedure: "x"}}}},
		{"two blocks", CreateInput{Type: "checkup", Date: day(1), Title: "x",
			Details: Details{Checkup: &details.Checkup{Reason: "x"}, Surgery: &details.Surgery{Procedure: "x"}}}},
		{"invalid block", CreateInput{Type: "medication", Date: day(1), Title: "x",
			Details: Details{Medication: &details.Medication{Name: "x"}}}},
		{"negative cost", CreateInput{Type: "other", Date: day(1), Title: "x", Cost: &Cost{Amount: -1}}},
		{"bad currency", CreateInput{Type: "other", Date: day(1), Title: "x", Cost: &Cost{Amount: 1, Currency: "pesos"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, owner1, "pet-1", tc.in)
			assertStatus(t, http.StatusBadRequest, err)
		})
	}
}

func TestList_GuardAndFilters(t *testing.T) {
	svc, _, grants := newTestService()
	ctx := context.Background()

	for i, typ := range []string{"vaccination", "checkup", "checkup", "surgery"} {
		_, err := svc.Create(ctx, owner1, "pet-1", CreateInput{Type: typ, Date: day(i + 1), Title: typ + " visit"})
		require.NoError(t, err)
	}

	items, err := svc.List(ctx, owner1, "pet-1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, TypeSurgery, items[0].Type) // más reciente primero

	items, err = svc.List(ctx, owner1, "pet-1", ListFilter{Types: []RecordType{TypeCheckup}})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.List(ctx, owner1, "pet-1", ListFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	from, to := day(5), day(1)
	_, err = svc.List(ctx, owner1, "pet-1", ListFilter{From: &from, To: &to})
	assertStatus(t, http.StatusBadRequest, err)

	_, err = svc.List(ctx, admin1, "pet-1", ListFilter{})
	require.NoError(t, err)

	_, err = svc.List(ctx, owner2, "pet-1", ListFilter{})
	assertStatus(t, http.StatusForbidden, err)

	_, err = svc.List(ctx, vet1, "pet-1", ListFilter{})
	assertStatus(t, http.StatusForbidden, err)

	grants.set("pet-1", vet1.ID, true)
	_, err = svc.List(ctx, vet1, "pet-1", ListFilter{})
	require.NoError(t, err)

	// revocado: el próximo request ya no pasa
	grants.set("pet-1", vet1.ID, false)
	_, err = svc.List(ctx, vet1, "pet-1", ListFilter{})
	assertStatus(t, http.StatusForbidden, err)
}

func TestGet_WrongPet(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, owner1, "pet-1", CreateInput{Type: "other", Date: day(1), Title: "x"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner1, "pet-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// el registro existe pero es de otra mascota
	_, err = svc.Get(ctx, owner2, "pet-2", rec.ID)
	assertStatus(t, http.StatusNotFound, err)

	// sin permiso sobre la mascota: 403 antes de mirar el registro
	_, err = svc.Get(ctx, owner2, "pet-1", rec.ID)
	assertStatus(t, http.StatusForbidden, err)

	_, err = svc.Get(ctx, owner1, "pet-1", "missing")
	assertStatus(t, http.StatusNotFound, err)
}

func TestUpdate_And_Void(t *testing.T) {
	svc, repo, grants := newTestService()
	ctx := context.Background()

	rec, err := svc.Create(ctx, owner1, "pet-1", CreateInput{Type: "medication", Date: day(1), Title: "Antibiótico",
		Details: Details{Medication: &details.Medication{Name: "Amoxicilina", Dosage: "250 mg"}}})
	require.NoError(t, err)

	grants.set("pet-1", vet1.ID, true)
	title := "Antibiótico (ajustado)"
	up, err := svc.Update(ctx, vet1, "pet-1", rec.ID, UpdateInput{
		Title:   &title,
		Details: &Details{Medication: &details.Medication{Name: "Amoxicilina", Dosage: "500 mg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, title, up.Title)
	assert.Equal(t, "500 mg", up.Details.Medication.Dosage)
	assert.Equal(t, vet1.ID, up.UpdatedBy)
	assert.Equal(t, owner1.ID, up.CreatedBy)

	_, err = svc.Update(ctx, vet1, "pet-1", rec.ID, UpdateInput{Details: &Details{Checkup: &details.Checkup{Reason: "x"}}})
	assertStatus(t, http.StatusBadRequest, err)

	_, err = svc.Update(ctx, admin1, "pet-1", rec.ID, UpdateInput{Title: &title})
	assertStatus(t, http.StatusForbidden, err)
	_, err = svc.Void(ctx, admin1, "pet-1", rec.ID)
	assertStatus(t, http.StatusForbidden, err)

	voided, err := svc.Void(ctx, owner1, "pet-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVoided, voided.Status)

	// idempotente
	again, err := svc.Void(ctx, owner1, "pet-1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, voided, again)

	_, err = svc.Update(ctx, owner1, "pet-1", rec.ID, UpdateInput{Title: &title})
	assertStatus(t, http.StatusConflict, err)

	stored, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVoided, stored.Status)

	// anulados no aparecen salvo que se pidan
	items, err := svc.List(ctx, owner1, "pet-1", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	items, err = svc.List(ctx, owner1, "pet-1", ListFilter{IncludeVoided: true})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
