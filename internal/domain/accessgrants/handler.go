package accessgrants

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pet-health-api/internal/middleware"
	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/pet-access", func(ar chi.Router) {
		ar.Use(middleware.RequireAuth)

		// Dueño o veterinario pueden pedir; admin no.
		ar.With(middleware.RequireRole(auth.RolePetOwner, auth.RoleVeterinarian)).
			Post("/request", requestAccessHandler(svc))

		ar.Get("/", listMyGrantsHandler(svc))
		ar.Get("/{grantID}", getGrantHandler(svc))

		// Solo el dueño decide o revoca
		ar.With(middleware.RequireRole(auth.RolePetOwner)).Put("/{grantID}/decide", decideGrantHandler(svc))
		ar.With(middleware.RequireRole(auth.RolePetOwner)).Put("/{grantID}/revoke", revokeGrantHandler(svc))
	})

	// Dueño: todos los accesos de una mascota
	r.With(middleware.RequireAuth).Get("/pets/{petID}/access", listGrantsByPetHandler(svc))
}

type requestAccessRequest struct {
	PetID     string `json:"pet_id"`
	VetUserID string `json:"vet_user_id"` // opcional si pide el propio vet
}

type decideRequest struct {
	Outcome Outcome `json:"outcome" enums:"approve,reject"`
}

type grantResponse struct {
	ID              string     `json:"id"`
	PetID           string     `json:"pet_id"`
	OwnerUserID     string     `json:"owner_user_id"`
	VetUserID       string     `json:"vet_user_id"`
	RequestedBy     string     `json:"requested_by"`
	RequestedByRole auth.Role  `json:"requested_by_role"`
	Status          Status     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	DecidedBy       string     `json:"decided_by,omitempty"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
}

// requestAccessHandler godoc
// @Summary Pedir acceso a los registros de una mascota
// @Description El dueño pide para un veterinario aprobado, o un veterinario aprobado pide para sí mismo. Queda en pending hasta que el dueño decida.
// @Tags pet-access
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body requestAccessRequest true "Mascota y veterinario"
// @Success 201 {object} grantResponse
// @Failure 400 {object} map[string]string "veterinario inválido o no aprobado"
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "pet not found"
// @Failure 409 {object} map[string]string "ya existe un pedido pendiente"
// @Router /pet-access/request [post]
func requestAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		var req requestAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		g, err := svc.Request(r.Context(), actor, RequestInput{
			PetID:     req.PetID,
			VetUserID: req.VetUserID,
		})
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

// decideGrantHandler godoc
// @Summary Aprobar o rechazar un pedido de acceso
// @Tags pet-access
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grantID path string true "ID del grant"
// @Param payload body decideRequest true "approve | reject"
// @Success 200 {object} grantResponse
// @Failure 400 {object} map[string]string "outcome inválido / veterinario ya no aprobado"
// @Failure 403 {object} map[string]string "no es el dueño"
// @Failure 404 {object} map[string]string "grant not found"
// @Failure 409 {object} map[string]string "el grant no está pendiente"
// @Router /pet-access/{grantID}/decide [put]
func decideGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		var req decideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}
		outcome, ok := ParseOutcome(string(req.Outcome))
		if !ok {
			apperr.WriteStatus(w, http.StatusBadRequest, "outcome must be approve or reject")
			return
		}

		g, err := svc.Decide(r.Context(), actor, chi.URLParam(r, "grantID"), outcome)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

// revokeGrantHandler godoc
// @Summary Revocar un acceso aprobado
// @Description Terminal: para volver a dar acceso hay que crear un pedido nuevo.
// @Tags pet-access
// @Produce json
// @Security BearerAuth
// @Param grantID path string true "ID del grant"
// @Success 200 {object} grantResponse
// @Failure 403 {object} map[string]string "no es el dueño"
// @Failure 404 {object} map[string]string "grant not found"
// @Failure 409 {object} map[string]string "el grant no está aprobado"
// @Router /pet-access/{grantID}/revoke [put]
func revokeGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		g, err := svc.Revoke(r.Context(), actor, chi.URLParam(r, "grantID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

// listMyGrantsHandler godoc
// @Summary Listar mis accesos
// @Description Dueño: accesos de sus mascotas. Veterinario: sus pedidos/accesos. Filtro opcional status (CSV).
// @Tags pet-access
// @Produce json
// @Security BearerAuth
// @Param status query string false "CSV de estados: pending,approved,rejected,revoked"
// @Success 200 {array} grantResponse
// @Failure 400 {object} map[string]string "status inválido"
// @Failure 403 {object} map[string]string "forbidden"
// @Router /pet-access [get]
func listMyGrantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		statuses, err := parseStatusFilter(r.URL.Query().Get("status"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		var items []Grant
		switch actor.Role {
		case auth.RolePetOwner:
			items, err = svc.ListForOwner(r.Context(), actor, statuses...)
		case auth.RoleVeterinarian:
			items, err = svc.ListForVet(r.Context(), actor, statuses...)
		default:
			err = apperr.Forbidden("only owners and veterinarians have grants")
		}
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toGrantResponses(items))
	}
}

// getGrantHandler godoc
// @Summary Ver un acceso
// @Tags pet-access
// @Produce json
// @Security BearerAuth
// @Param grantID path string true "ID del grant"
// @Success 200 {object} grantResponse
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "grant not found"
// @Router /pet-access/{grantID} [get]
func getGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		g, err := svc.Get(r.Context(), actor, chi.URLParam(r, "grantID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

// listGrantsByPetHandler godoc
// @Summary Accesos de una mascota (dueño)
// @Tags pet-access
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Success 200 {array} grantResponse
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "pet not found"
// @Router /pets/{petID}/access [get]
func listGrantsByPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		items, err := svc.ListForPet(r.Context(), actor, chi.URLParam(r, "petID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toGrantResponses(items))
	}
}

// parseStatusFilter: "pending,approved" => []Status. Vacío = sin filtro.
func parseStatusFilter(raw string) ([]Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	out := make([]Status, 0)
	for _, part := range strings.Split(raw, ",") {
		st := Status(strings.ToLower(strings.TrimSpace(part)))
		if st == "" {
			continue
		}
		if !st.Valid() {
			return nil, apperr.Invalidf("invalid status %q", st)
		}
		out = append(out, st)
	}
	return out, nil
}

func toGrantResponses(items []Grant) []grantResponse {
	out := make([]grantResponse, 0, len(items))
	for _, g := range items {
		out = append(out, toGrantResponse(g))
	}
	return out
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:              g.ID,
		PetID:           g.PetID,
		OwnerUserID:     g.OwnerUserID,
		VetUserID:       g.VetUserID,
		RequestedBy:     g.RequestedBy,
		RequestedByRole: g.RequestedByRole,
		Status:          g.Status,
		RequestedAt:     g.RequestedAt,
		UpdatedAt:       g.UpdatedAt,
		DecidedAt:       g.DecidedAt,
		DecidedBy:       g.DecidedBy,
		RevokedAt:       g.RevokedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
