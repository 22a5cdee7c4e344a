package accounts

import (
	"net/http"

	"pet-health-api/internal/middleware"
	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func registerAdminRoutes(r chi.Router, svc *Service) {
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(middleware.RequireAuth)
		ar.Use(middleware.RequireRole(auth.RoleAdmin))

		ar.Get("/vets", adminListVetsHandler(svc))
		ar.Put("/vets/{userID}/approve", approveVetHandler(svc))
		ar.Put("/vets/{userID}/reject", rejectVetHandler(svc))
		ar.Get("/stats", statsHandler(svc))
	})
}

type statsResponse struct {
	TotalVets    int `json:"total_vets"`
	ApprovedVets int `json:"approved_vets"`
	PendingVets  int `json:"pending_vets"`
	TotalOwners  int `json:"total_owners"`
}

// adminListVetsHandler godoc
// @Summary Listar veterinarios (admin)
// @Description Más nuevos primero. status=pending|approved|all (default all).
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending | approved | all"
// @Success 200 {array} accountResponse
// @Failure 400 {object} map[string]string "status inválido"
// @Failure 401 {object} map[string]string "unauthorized"
// @Failure 403 {object} map[string]string "forbidden"
// @Router /admin/vets [get]
func adminListVetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		filter, ok := ParseVetFilter(r.URL.Query().Get("status"))
		if !ok {
			apperr.WriteStatus(w, http.StatusBadRequest, "status must be pending, approved or all")
			return
		}

		vets, err := svc.ListVeterinarians(r.Context(), actor, filter)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		out := make([]accountResponse, 0, len(vets))
		for _, v := range vets {
			out = append(out, toAccountResponse(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// approveVetHandler godoc
// @Summary Aprobar veterinario
// @Description Idempotente.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "ID del veterinario"
// @Success 200 {object} accountResponse
// @Failure 400 {object} map[string]string "el usuario no es veterinario"
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "user not found"
// @Router /admin/vets/{userID}/approve [put]
func approveVetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		a, err := svc.ApproveVeterinarian(r.Context(), actor, chi.URLParam(r, "userID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccountResponse(a))
	}
}

// rejectVetHandler godoc
// @Summary Rechazar veterinario
// @Description Vuelve el veterinario a pendiente. No revoca accesos ya aprobados.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "ID del veterinario"
// @Success 200 {object} accountResponse
// @Failure 400 {object} map[string]string "el usuario no es veterinario"
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "user not found"
// @Router /admin/vets/{userID}/reject [put]
func rejectVetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		a, err := svc.RejectVeterinarian(r.Context(), actor, chi.URLParam(r, "userID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccountResponse(a))
	}
}

// statsHandler godoc
// @Summary Estadísticas del panel admin
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} statsResponse
// @Failure 403 {object} map[string]string "forbidden"
// @Router /admin/stats [get]
func statsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		st, err := svc.Stats(r.Context(), actor)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, statsResponse(st))
	}
}
