package accounts

import (
	"encoding/json"
	"net/http"
	"time"

	"pet-health-api/internal/middleware"
	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Públicas
	r.Post("/auth/signup", signupHandler(svc))
	r.Post("/auth/login", loginHandler(svc))

	// Cualquier usuario autenticado
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireAuth)

		ar.Get("/users/me", getMeHandler(svc))
		ar.Put("/users/me", updateMeHandler(svc))
		ar.Put("/users/me/password", changePasswordHandler(svc))

		ar.Get("/vets", listVetsHandler(svc))
	})

	registerAdminRoutes(r, svc)
}

type signupRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role" enums:"pet_owner,veterinarian"`
	// Approved se acepta pero se ignora (un vet siempre arranca pendiente).
	Approved bool `json:"approved"`

	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Clinic         string `json:"clinic"`
	License        string `json:"license"`
	Specialization string `json:"specialization"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// accountResponse nunca incluye el hash.
type accountResponse struct {
	ID       string        `json:"id"`
	Email    string        `json:"email"`
	Role     auth.Role     `json:"role"`
	Approved bool          `json:"approved"`
	Approval ApprovalState `json:"approval_status,omitempty"`

	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Clinic         string `json:"clinic,omitempty"`
	License        string `json:"license,omitempty"`
	Specialization string `json:"specialization,omitempty"`

	ProfileCompleted bool      `json:"profile_completed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      accountResponse `json:"user"`
}

type updateProfileRequest struct {
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	Clinic         *string `json:"clinic"`
	Specialization *string `json:"specialization"`
	License        *string `json:"license"` // solo se acepta si no cambia
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// vetDirectoryEntry es lo que ve cualquier usuario en /vets.
type vetDirectoryEntry struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Clinic         string `json:"clinic"`
	License        string `json:"license"`
	Specialization string `json:"specialization"`
	Address        string `json:"address"`
}

// signupHandler godoc
// @Summary Registrar usuario
// @Description Crea una cuenta pet_owner o veterinarian. Los veterinarios quedan pendientes de aprobación y deben informar matrícula (license).
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signupRequest true "Datos de registro"
// @Success 201 {object} accountResponse
// @Failure 400 {object} map[string]string "datos inválidos"
// @Failure 409 {object} map[string]string "email ya registrado"
// @Router /auth/signup [post]
func signupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		a, err := svc.Register(r.Context(), RegisterInput{
			Email:    req.Email,
			Password: req.Password,
			Role:     req.Role,
			Approved: req.Approved,
			Profile: Profile{
				Name:           req.Name,
				Phone:          req.Phone,
				Address:        req.Address,
				Clinic:         req.Clinic,
				License:        req.License,
				Specialization: req.Specialization,
			},
		})
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAccountResponse(a))
	}
}

// loginHandler godoc
// @Summary Iniciar sesión
// @Description Devuelve un bearer token válido por 24h. Un veterinario sin aprobar recibe 403.
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginRequest true "Credenciales"
// @Success 200 {object} loginResponse
// @Failure 400 {object} map[string]string "faltan credenciales"
// @Failure 401 {object} map[string]string "credenciales inválidas"
// @Failure 403 {object} map[string]string "pending approval"
// @Router /auth/login [post]
func loginHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		res, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{
			Token:     res.Token.Value,
			ExpiresAt: res.Token.ExpiresAt,
			User:      toAccountResponse(res.Account),
		})
	}
}

// getMeHandler godoc
// @Summary Ver mi perfil
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} accountResponse
// @Failure 401 {object} map[string]string "unauthorized"
// @Router /users/me [get]
func getMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		a, err := svc.Get(r.Context(), actor.ID)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccountResponse(a))
	}
}

// updateMeHandler godoc
// @Summary Actualizar mi perfil
// @Description PATCH semántico: solo se modifican los campos enviados. La matrícula no se puede cambiar.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body updateProfileRequest true "Campos a modificar"
// @Success 200 {object} accountResponse
// @Failure 400 {object} map[string]string "datos inválidos"
// @Failure 401 {object} map[string]string "unauthorized"
// @Router /users/me [put]
func updateMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		a, err := svc.UpdateProfile(r.Context(), actor.ID, UpdateProfileInput(req))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toAccountResponse(a))
	}
}

// changePasswordHandler godoc
// @Summary Cambiar contraseña
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body changePasswordRequest true "Contraseña actual y nueva (mínimo 6)"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "datos inválidos"
// @Failure 401 {object} map[string]string "contraseña actual incorrecta"
// @Router /users/me/password [put]
func changePasswordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		var req changePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		if err := svc.ChangePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
	}
}

// listVetsHandler godoc
// @Summary Directorio de veterinarios aprobados
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} vetDirectoryEntry
// @Failure 401 {object} map[string]string "unauthorized"
// @Router /vets [get]
func listVetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vets, err := svc.ListApprovedVets(r.Context())
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		out := make([]vetDirectoryEntry, 0, len(vets))
		for _, v := range vets {
			out = append(out, vetDirectoryEntry{
				ID:             v.ID,
				Name:           v.Profile.Name,
				Email:          v.Email,
				Clinic:         v.Profile.Clinic,
				License:        v.Profile.License,
				Specialization: v.Profile.Specialization,
				Address:        v.Profile.Address,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toAccountResponse(a Account) accountResponse {
	out := accountResponse{
		ID:               a.ID,
		Email:            a.Email,
		Role:             a.Role,
		Approved:         a.Approved,
		Name:             a.Profile.Name,
		Phone:            a.Profile.Phone,
		Address:          a.Profile.Address,
		Clinic:           a.Profile.Clinic,
		License:          a.Profile.License,
		Specialization:   a.Profile.Specialization,
		ProfileCompleted: a.ProfileCompleted(),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.IsVeterinarian() {
		out.Approval = a.Approval()
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
