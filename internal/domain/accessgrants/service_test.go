package accessgrants

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test repo (in-memory, con las mismas garantías que los adapters)
// -------------------------

type testRepo struct {
	mu   sync.Mutex
	byID map[string]Grant
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Grant{}}
}

func (r *testRepo) Create(_ context.Context, g Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.PetID == g.PetID && existing.VetUserID == g.VetUserID && existing.Status == StatusPending {
			return ErrDuplicatePending
		}
	}
	r.byID[g.ID] = g
	return nil
}

func (r *testRepo) Transition(_ context.Context, g Grant, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[g.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != from {
		return ErrStaleStatus
	}
	r.byID[g.ID] = g
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.byID[id]
	if !ok {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

func (r *testRepo) list(match func(Grant) bool) []Grant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Grant, 0)
	for _, g := range r.byID {
		if match(g) {
			out = append(out, g)
		}
	}
	return out
}

func (r *testRepo) ListByPet(_ context.Context, petID string) ([]Grant, error) {
	return r.list(func(g Grant) bool { return g.PetID == petID }), nil
}

func (r *testRepo) ListByVet(_ context.Context, vetID string) ([]Grant, error) {
	return r.list(func(g Grant) bool { return g.VetUserID == vetID }), nil
}

func (r *testRepo) ListByOwner(_ context.Context, ownerID string) ([]Grant, error) {
	return r.list(func(g Grant) bool { return g.OwnerUserID == ownerID }), nil
}

func (r *testRepo) HasApproved(_ context.Context, petID, vetID string) (bool, error) {
	items := r.list(func(g Grant) bool {
		return g.PetID == petID && g.VetUserID == vetID && g.Status == StatusApproved
	})
	return len(items) > 0, nil
}

type fakePets map[string]string // petID -> ownerID

func (f fakePets) OwnerOf(_ context.Context, petID string) (string, error) {
	owner, ok := f[petID]
	if !ok {
		return "", apperr.NotFound("pet not found")
	}
	return owner, nil
}

type fakeVets struct {
	mu       sync.Mutex
	approved map[string]bool
}

func (f *fakeVets) IsApprovedVeterinarian(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approved[id], nil
}

func (f *fakeVets) set(id string, approved bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved[id] = approved
}

// -------------------------
// Fixtures
// -------------------------

var (
	owner      = auth.Actor{ID: "owner-1", Role: auth.RolePetOwner}
	otherOwner = auth.Actor{ID: "owner-2", Role: auth.RolePetOwner}
	vet        = auth.Actor{ID: "vet-1", Role: auth.RoleVeterinarian}
	vet2       = auth.Actor{ID: "vet-2", Role: auth.RoleVeterinarian} // no aprobado
	admin      = auth.Actor{ID: "admin-1", Role: auth.RoleAdmin}
)

func newTestService() (*Service, *testRepo, *fakeVets) {
	repo := newTestRepo()
	vets := &fakeVets{approved: map[string]bool{"vet-1": true, "vet-3": true}}
	pets := fakePets{"pet-1": "owner-1", "pet-2": "owner-1"}

	svc := NewService(repo, pets, vets)
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	svc.now = func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Minute)
	}
	return svc, repo, vets
}

func assertStatus(t *testing.T, want int, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apperr.HTTPStatus(err), "err: %v", err)
}

func mustRequest(t *testing.T, svc *Service, actor auth.Actor, petID, vetID string) Grant {
	t.Helper()
	g, err := svc.Request(context.Background(), actor, RequestInput{PetID: petID, VetUserID: vetID})
	require.NoError(t, err)
	return g
}

// -------------------------
// State machine
// -------------------------

func TestStatus_Transitions(t *testing.T) {
	all := []Status{StatusPending, StatusApproved, StatusRejected, StatusRevoked}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusApproved}: true,
		{StatusPending, StatusRejected}: true,
		{StatusApproved, StatusRevoked}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusRevoked.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestGrant_TransitionStampsFields(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := Grant{ID: "g", Status: StatusPending}

	approved, err := g.transition(StatusApproved, "owner-1", at)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", approved.DecidedBy)
	require.NotNil(t, approved.DecidedAt)
	assert.Equal(t, StatusPending, g.Status, "original no se modifica")

	revoked, err := approved.transition(StatusRevoked, "owner-1", at.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedAt)

	_, err = revoked.transition(StatusApproved, "owner-1", at)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// -------------------------
// Request
// -------------------------

func TestRequest_ByVetForItself(t *testing.T) {
	svc, _, _ := newTestService()

	g := mustRequest(t, svc, vet, "pet-1", "")
	assert.Equal(t, StatusPending, g.Status)
	assert.Equal(t, "vet-1", g.VetUserID)
	assert.Equal(t, "owner-1", g.OwnerUserID)
	assert.Equal(t, auth.RoleVeterinarian, g.RequestedByRole)
	assert.Nil(t, g.DecidedAt)
}

func TestRequest_ByOwner(t *testing.T) {
	svc, _, _ := newTestService()

	g := mustRequest(t, svc, owner, "pet-1", "vet-1")
	assert.Equal(t, "owner-1", g.RequestedBy)
	assert.Equal(t, auth.RolePetOwner, g.RequestedByRole)
}

func TestRequest_Failures(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		actor auth.Actor
		in    RequestInput
		want  int
	}{
		{"unapproved vet for itself", vet2, RequestInput{PetID: "pet-1"}, http.StatusBadRequest},
		{"owner names unapproved vet", owner, RequestInput{PetID: "pet-1", VetUserID: "vet-2"}, http.StatusBadRequest},
		{"owner names unknown user", owner, RequestInput{PetID: "pet-1", VetUserID: "ghost"}, http.StatusBadRequest},
		{"owner without vet", owner, RequestInput{PetID: "pet-1"}, http.StatusBadRequest},
		{"missing pet id", vet, RequestInput{}, http.StatusBadRequest},
		{"unknown pet", vet, RequestInput{PetID: "pet-x"}, http.StatusNotFound},
		{"not the owner", otherOwner, RequestInput{PetID: "pet-1", VetUserID: "vet-1"}, http.StatusForbidden},
		{"vet on behalf of other vet", vet, RequestInput{PetID: "pet-1", VetUserID: "vet-3"}, http.StatusForbidden},
		{"admin", admin, RequestInput{PetID: "pet-1", VetUserID: "vet-1"}, http.StatusForbidden},
		{"anonymous", auth.Actor{}, RequestInput{PetID: "pet-1"}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Request(ctx, tc.actor, tc.in)
			assertStatus(t, tc.want, err)
		})
	}
}

func TestRequest_DuplicatePendingIsConflict(t *testing.T) {
	svc, _, _ := newTestService()
	mustRequest(t, svc, vet, "pet-1", "")

	_, err := svc.Request(context.Background(), owner, RequestInput{PetID: "pet-1", VetUserID: "vet-1"})
	assertStatus(t, http.StatusConflict, err)

	// otra mascota u otro vet no chocan
	mustRequest(t, svc, vet, "pet-2", "")
	mustRequest(t, svc, owner, "pet-1", "vet-3")
}

func TestRequest_AllowedRightAfterRejectOrRevoke(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	g1 := mustRequest(t, svc, vet, "pet-1", "")
	_, err := svc.Decide(ctx, owner, g1.ID, OutcomeReject)
	require.NoError(t, err)

	g2 := mustRequest(t, svc, vet, "pet-1", "")
	_, err = svc.Decide(ctx, owner, g2.ID, OutcomeApprove)
	require.NoError(t, err)
	_, err = svc.Revoke(ctx, owner, g2.ID)
	require.NoError(t, err)

	g3 := mustRequest(t, svc, vet, "pet-1", "")
	assert.NotEqual(t, g2.ID, g3.ID)
}

func TestRequest_ConcurrentOnlyOnePending(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	const n = 32
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			actor := vet
			in := RequestInput{PetID: "pet-1"}
			if i%2 == 0 {
				actor, in.VetUserID = owner, "vet-1"
			}
			_, err := svc.Request(ctx, actor, in)
			switch {
			case err == nil:
				successes.Add(1)
			case apperr.HTTPStatus(err) == http.StatusConflict:
				conflicts.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, n-1, conflicts.Load())

	pending, err := repo.ListByPet(ctx, "pet-1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// -------------------------
// Decide / Revoke
// -------------------------

func TestDecide_Approve(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	g := mustRequest(t, svc, vet, "pet-1", "")

	got, err := svc.Decide(ctx, owner, g.ID, OutcomeApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, "owner-1", got.DecidedBy)
	require.NotNil(t, got.DecidedAt)

	ok, err := svc.HasApprovedGrant(ctx, "pet-1", "vet-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// decidido una sola vez
	_, err = svc.Decide(ctx, owner, g.ID, OutcomeReject)
	assertStatus(t, http.StatusConflict, err)
}

func TestDecide_Guards(t *testing.T) {
	svc, _, vets := newTestService()
	ctx := context.Background()
	g := mustRequest(t, svc, vet, "pet-1", "")

	_, err := svc.Decide(ctx, otherOwner, g.ID, OutcomeApprove)
	assertStatus(t, http.StatusForbidden, err)

	// el vet no decide sobre su propio pedido
	_, err = svc.Decide(ctx, vet, g.ID, OutcomeApprove)
	assertStatus(t, http.StatusForbidden, err)

	_, err = svc.Decide(ctx, owner, "missing", OutcomeApprove)
	assertStatus(t, http.StatusNotFound, err)

	_, err = svc.Decide(ctx, owner, g.ID, Outcome("maybe"))
	assertStatus(t, http.StatusBadRequest, err)

	// el vet perdió la aprobación entre el pedido y la decisión
	vets.set("vet-1", false)
	_, err = svc.Decide(ctx, owner, g.ID, OutcomeApprove)
	assertStatus(t, http.StatusBadRequest, err)

	// rechazar sigue permitido
	got, err := svc.Decide(ctx, owner, g.ID, OutcomeReject)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
}

func TestRevoke(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	g := mustRequest(t, svc, vet, "pet-1", "")

	// pending no se revoca
	_, err := svc.Revoke(ctx, owner, g.ID)
	assertStatus(t, http.StatusConflict, err)

	_, err = svc.Decide(ctx, owner, g.ID, OutcomeApprove)
	require.NoError(t, err)

	_, err = svc.Revoke(ctx, otherOwner, g.ID)
	assertStatus(t, http.StatusForbidden, err)

	got, err := svc.Revoke(ctx, owner, g.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, got.Status)
	require.NotNil(t, got.RevokedAt)

	ok, err := svc.HasApprovedGrant(ctx, "pet-1", "vet-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// terminal
	_, err = svc.Revoke(ctx, owner, g.ID)
	assertStatus(t, http.StatusConflict, err)
	_, err = svc.Decide(ctx, owner, g.ID, OutcomeApprove)
	assertStatus(t, http.StatusConflict, err)
}

func TestDecide_ConcurrentSingleDecision(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	g := mustRequest(t, svc, vet, "pet-1", "")

	const n = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcome := OutcomeApprove
			if i%2 == 1 {
				outcome = OutcomeReject
			}
			if _, err := svc.Decide(ctx, owner, g.ID, outcome); err == nil {
				successes.Add(1)
			} else {
				assert.Equal(t, http.StatusConflict, apperr.HTTPStatus(err))
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	stored, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status == StatusApproved || stored.Status == StatusRejected)
}

// CAS perdido entre la lectura y la escritura.
type staleRepo struct{ *testRepo }

func (staleRepo) Transition(context.Context, Grant, Status) error { return ErrStaleStatus }

func TestDecide_LostRaceIsConflictNotRetry(t *testing.T) {
	svc, repo, _ := newTestService()
	g := mustRequest(t, svc, vet, "pet-1", "")

	svc.repo = staleRepo{repo}
	_, err := svc.Decide(context.Background(), owner, g.ID, OutcomeApprove)
	assertStatus(t, http.StatusConflict, err)
}

type brokenRepo struct{ *testRepo }

func (brokenRepo) Create(context.Context, Grant) error { return errors.New("connection reset") }

func TestRequest_StoreFailureIsInternal(t *testing.T) {
	svc, repo, _ := newTestService()
	svc.repo = brokenRepo{repo}

	_, err := svc.Request(context.Background(), vet, RequestInput{PetID: "pet-1"})
	assertStatus(t, http.StatusInternalServerError, err)
}

// -------------------------
// Listados
// -------------------------

func TestListings(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	g1 := mustRequest(t, svc, vet, "pet-1", "")
	g2 := mustRequest(t, svc, vet, "pet-2", "")
	_, err := svc.Decide(ctx, owner, g2.ID, OutcomeApprove)
	require.NoError(t, err)

	mine, err := svc.ListForVet(ctx, vet)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, g2.ID, mine[0].ID, "más nuevos primero")

	approved, err := svc.ListForVet(ctx, vet, StatusApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "pet-2", approved[0].PetID)

	ownerView, err := svc.ListForOwner(ctx, owner, StatusPending)
	require.NoError(t, err)
	require.Len(t, ownerView, 1)
	assert.Equal(t, g1.ID, ownerView[0].ID)

	byPet, err := svc.ListForPet(ctx, owner, "pet-1")
	require.NoError(t, err)
	assert.Len(t, byPet, 1)

	_, err = svc.ListForPet(ctx, otherOwner, "pet-1")
	assertStatus(t, http.StatusForbidden, err)
	_, err = svc.ListForPet(ctx, owner, "pet-x")
	assertStatus(t, http.StatusNotFound, err)
	_, err = svc.ListForVet(ctx, owner)
	assertStatus(t, http.StatusForbidden, err)

	got, err := svc.Get(ctx, vet, g1.ID)
	require.NoError(t, err)
	assert.Equal(t, g1.ID, got.ID)
	_, err = svc.Get(ctx, otherOwner, g1.ID)
	assertStatus(t, http.StatusForbidden, err)
}
