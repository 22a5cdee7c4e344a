package pets

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pet-health-api/internal/domain/accessgrants"
	"pet-health-api/internal/middleware"
	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

const birthDateLayout = "2006-01-02"

func RegisterRoutes(r chi.Router, svc *Service, grants SharedGrants) {
	r.Route("/pets", func(pr chi.Router) {
		pr.Use(middleware.RequireAuth)

		// Solo dueños crean y listan sus mascotas
		pr.With(middleware.RequireRole(auth.RolePetOwner)).Post("/", createPetHandler(svc))
		pr.With(middleware.RequireRole(auth.RolePetOwner)).Get("/", listPetsHandler(svc))

		// Dueño, admin o vet con grant aprobado (lo decide el guard)
		pr.Get("/{petID}", getPetHandler(svc))
		pr.Patch("/{petID}", updatePetHandler(svc))
	})

	// Mascotas compartidas conmigo (vet)
	r.With(middleware.RequireAuth, middleware.RequireRole(auth.RoleVeterinarian)).
		Get("/me/pets", listMySharedPetsHandler(svc, grants))
}

type createPetRequest struct {
	Name      string `json:"name"`
	Species   string `json:"species" enums:"dog,cat,other"`
	Breed     string `json:"breed"`
	Sex       string `json:"sex" enums:"male,female,unknown"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD opcional
	Microchip string `json:"microchip"`
	Notes     string `json:"notes"`
}

type petResponse struct {
	ID          string     `json:"id"`
	OwnerUserID string     `json:"owner_user_id"`
	Name        string     `json:"name"`
	Species     Species    `json:"species"`
	Breed       string     `json:"breed,omitempty"`
	Sex         Sex        `json:"sex"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Microchip   string     `json:"microchip,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type updatePetRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name      *string `json:"name"`
	Species   *string `json:"species"`
	Breed     *string `json:"breed"`
	Sex       *string `json:"sex"`
	BirthDate *string `json:"birth_date"` // YYYY-MM-DD; null limpia
	Microchip *string `json:"microchip"`
	Notes     *string `json:"notes"`
}

type sharedPetResponse struct {
	Pet   petResponse        `json:"pet"`
	Grant sharedGrantSummary `json:"grant"`
}

type sharedGrantSummary struct {
	ID        string              `json:"id"`
	Status    accessgrants.Status `json:"status"`
	DecidedAt *time.Time          `json:"decided_at,omitempty"`
}

// createPetHandler godoc
// @Summary Registrar mascota
// @Description El usuario autenticado (pet_owner) queda como dueño.
// @Tags pets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body createPetRequest true "Datos de la mascota"
// @Success 201 {object} petResponse
// @Failure 400 {object} map[string]string "datos inválidos"
// @Failure 401 {object} map[string]string "unauthorized"
// @Failure 403 {object} map[string]string "solo pet_owner"
// @Router /pets [post]
func createPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		var req createPetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		var bd *time.Time
		if strings.TrimSpace(req.BirthDate) != "" {
			t, err := time.Parse(birthDateLayout, strings.TrimSpace(req.BirthDate))
			if err != nil {
				apperr.WriteStatus(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
				return
			}
			bd = &t
		}

		p, err := svc.Create(r.Context(), actor, CreateInput{
			Name:      req.Name,
			Species:   req.Species,
			Breed:     req.Breed,
			Sex:       req.Sex,
			BirthDate: bd,
			Microchip: req.Microchip,
			Notes:     req.Notes,
		})
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPetResponse(p))
	}
}

// listPetsHandler godoc
// @Summary Listar mis mascotas
// @Tags pets
// @Produce json
// @Security BearerAuth
// @Success 200 {array} petResponse
// @Failure 403 {object} map[string]string "solo pet_owner"
// @Router /pets [get]
func listPetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		items, err := svc.ListByOwner(r.Context(), actor)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		out := make([]petResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPetResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getPetHandler godoc
// @Summary Ver perfil de mascota
// @Description Dueño, admin o veterinario con acceso aprobado.
// @Tags pets
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} petResponse
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "pet not found"
// @Router /pets/{petID} [get]
func getPetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		p, err := svc.Get(r.Context(), actor, chi.URLParam(r, "petID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toPetResponse(p))
	}
}

// updatePetHandler godoc
// @Summary Actualizar mascota (PATCH)
// @Description Solo el dueño. birth_date: null limpia la fecha.
// @Tags pets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param payload body updatePetRequest true "Campos a modificar"
// @Success 200 {object} petResponse
// @Failure 400 {object} map[string]string "datos inválidos"
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "pet not found"
// @Router /pets/{petID} [patch]
func updatePetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		// Para soportar birth_date: null necesitamos detectar presencia del campo.
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		var req updatePetRequest
		{
			b, _ := json.Marshal(raw)
			dec := json.NewDecoder(bytes.NewReader(b))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
				return
			}
		}

		bd := PatchBirthDate{}
		if v, exists := raw["birth_date"]; exists {
			bd.Present = true
			if string(v) != "null" {
				var s string
				if err := json.Unmarshal(v, &s); err != nil {
					apperr.WriteStatus(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD or null")
					return
				}
				t, err := time.Parse(birthDateLayout, strings.TrimSpace(s))
				if err != nil {
					apperr.WriteStatus(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD or null")
					return
				}
				bd.Value = &t
			}
		}

		updated, err := svc.Update(r.Context(), actor, chi.URLParam(r, "petID"), UpdateInput{
			Name:      req.Name,
			Species:   req.Species,
			Breed:     req.Breed,
			Sex:       req.Sex,
			BirthDate: bd,
			Microchip: req.Microchip,
			Notes:     req.Notes,
		})
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toPetResponse(updated))
	}
}

// listMySharedPetsHandler godoc
// @Summary Mascotas compartidas conmigo
// @Description Mascotas con un acceso aprobado para el veterinario autenticado.
// @Tags pets
// @Produce json
// @Security BearerAuth
// @Success 200 {array} sharedPetResponse
// @Failure 403 {object} map[string]string "solo veterinarian"
// @Router /me/pets [get]
func listMySharedPetsHandler(svc *Service, grants SharedGrants) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		items, err := svc.ListSharedWith(r.Context(), actor, grants)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		out := make([]sharedPetResponse, 0, len(items))
		for _, it := range items {
			out = append(out, sharedPetResponse{
				Pet: toPetResponse(it.Pet),
				Grant: sharedGrantSummary{
					ID:        it.Grant.ID,
					Status:    it.Grant.Status,
					DecidedAt: it.Grant.DecidedAt,
				},
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toPetResponse(p Pet) petResponse {
	return petResponse{
		ID:          p.ID,
		OwnerUserID: p.OwnerUserID,
		Name:        p.Name,
		Species:     p.Species,
		Breed:       p.Breed,
		Sex:         p.Sex,
		BirthDate:   p.BirthDate,
		Microchip:   p.Microchip,
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
