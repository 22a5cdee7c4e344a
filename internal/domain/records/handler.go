package records

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-health-api/internal/middleware"
	"pet-health-api/internal/platform/apperr"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/pets/{petID}/records", func(rr chi.Router) {
		rr.Use(middleware.RequireAuth)

		// Los permisos los decide el guard (records:read / records:write)
		rr.Post("/", createRecordHandler(svc))
		rr.Get("/", listRecordsHandler(svc))
		rr.Get("/{recordID}", getRecordHandler(svc))
		rr.Patch("/{recordID}", updateRecordHandler(svc))

		// Anular (void), no se borra
		rr.Post("/{recordID}/void", voidRecordHandler(svc))
	})
}

// createRecordRequest es el cuerpo para registrar un nuevo registro médico.
type createRecordRequest struct {
	Type    RecordType `json:"type" enums:"vaccination,medication,checkup,surgery,lab_result,other"`
	Date    string     `json:"date"` // RFC3339 o YYYY-MM-DD
	Title   string     `json:"title"`
	Notes   string     `json:"notes"`
	Details Details    `json:"details"`
	Cost    *Cost      `json:"cost,omitempty"`
}

type updateRecordRequest struct {
	Date    *string  `json:"date"`
	Title   *string  `json:"title"`
	Notes   *string  `json:"notes"`
	Details *Details `json:"details"`
	Cost    *Cost    `json:"cost"`
}

// recordResponse representa un registro médico devuelto por la API.
type recordResponse struct {
	ID             string     `json:"id"`
	PetID          string     `json:"pet_id"`
	Type           RecordType `json:"type"`
	Date           time.Time  `json:"date"`
	Title          string     `json:"title"`
	Notes          string     `json:"notes,omitempty"`
	VeterinarianID string     `json:"veterinarian_id,omitempty"`
	Details        Details    `json:"details"`
	Cost           *Cost      `json:"cost,omitempty"`
	Status         Status     `json:"status"`
	CreatedBy      string     `json:"created_by"`
	UpdatedBy      string     `json:"updated_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// createRecordHandler godoc
// @Summary Crear registro médico
// @Description El dueño siempre puede. Un veterinario necesita un acceso aprobado a la mascota; en ese caso queda como veterinario del registro.
// @Tags records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param payload body createRecordRequest true "Datos del registro; date en RFC3339 o YYYY-MM-DD"
// @Success 201 {object} recordResponse
// @Failure 400 {object} map[string]string "invalid json / date inválida / reglas de negocio"
// @Failure 401 {object} map[string]string "unauthorized"
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "pet not found"
// @Router /pets/{petID}/records [post]
func createRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		var date time.Time
		if strings.TrimSpace(req.Date) != "" {
			t, err := parseDate(req.Date)
			if err != nil {
				apperr.WriteStatus(w, http.StatusBadRequest, "date must be RFC3339 or YYYY-MM-DD")
				return
			}
			date = t
		}

		rec, err := svc.Create(r.Context(), actor, chi.URLParam(r, "petID"), CreateInput{
			Type:    string(req.Type),
			Date:    date,
			Title:   req.Title,
			Notes:   req.Notes,
			Details: req.Details,
			Cost:    req.Cost,
		})
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRecordResponse(rec))
	}
}

// listRecordsHandler godoc
// @Summary Listar registros médicos de una mascota
// @Description Dueño, admin o veterinario con acceso aprobado. Permite filtrar por tipos, rango de fechas y texto.
// @Tags records
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param limit query int false "Máximo de registros a devolver (1-200). Por defecto 50"
// @Param types query string false "Lista CSV de tipos a incluir (ej: vaccination,checkup)"
// @Param from query string false "Fecha mínima (RFC3339 o YYYY-MM-DD)"
// @Param to query string false "Fecha máxima (RFC3339 o YYYY-MM-DD)"
// @Param q query string false "Texto de búsqueda libre en título/notas"
// @Param include_voided query bool false "Incluir registros anulados"
// @Success 200 {array} recordResponse
// @Failure 400 {object} map[string]string "Parámetros de filtro inválidos"
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "pet not found"
// @Router /pets/{petID}/records [get]
func listRecordsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		filter, err := parseListFilter(r)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		items, err := svc.List(r.Context(), actor, chi.URLParam(r, "petID"), filter)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}

		out := make([]recordResponse, 0, len(items))
		for _, rec := range items {
			out = append(out, toRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getRecordHandler godoc
// @Summary Ver un registro médico
// @Tags records
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} recordResponse
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "record not found"
// @Router /pets/{petID}/records/{recordID} [get]
func getRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		rec, err := svc.Get(r.Context(), actor, chi.URLParam(r, "petID"), chi.URLParam(r, "recordID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// updateRecordHandler godoc
// @Summary Actualizar registro médico (PATCH)
// @Description El tipo no se puede cambiar. details y cost se reemplazan completos.
// @Tags records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param recordID path string true "ID del registro"
// @Param payload body updateRecordRequest true "Campos a modificar"
// @Success 200 {object} recordResponse
// @Failure 400 {object} map[string]string "datos inválidos"
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "record not found"
// @Failure 409 {object} map[string]string "registro anulado"
// @Router /pets/{petID}/records/{recordID} [patch]
func updateRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateRecordRequest
		if err := dec.Decode(&req); err != nil {
			apperr.WriteStatus(w, http.StatusBadRequest, "invalid json")
			return
		}

		in := UpdateInput{
			Title:   req.Title,
			Notes:   req.Notes,
			Details: req.Details,
			Cost:    req.Cost,
		}
		if req.Date != nil {
			t, err := parseDate(*req.Date)
			if err != nil {
				apperr.WriteStatus(w, http.StatusBadRequest, "date must be RFC3339 or YYYY-MM-DD")
				return
			}
			in.Date = &t
		}

		rec, err := svc.Update(r.Context(), actor, chi.URLParam(r, "petID"), chi.URLParam(r, "recordID"), in)
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// voidRecordHandler godoc
// @Summary Anular (void) un registro médico
// @Tags records
// @Produce json
// @Security BearerAuth
// @Param petID path string true "ID de la mascota"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} recordResponse
// @Failure 403 {object} map[string]string "forbidden"
// @Failure 404 {object} map[string]string "record not found"
// @Router /pets/{petID}/records/{recordID}/void [post]
func voidRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFrom(r.Context())

		rec, err := svc.Void(r.Context(), actor, chi.URLParam(r, "petID"), chi.URLParam(r, "recordID"))
		if err != nil {
			apperr.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()

	limit := DefaultListLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= MaxListLimit {
			limit = n
		}
	}

	filter := ListFilter{Limit: limit}

	// types=vaccination,checkup
	if v := strings.TrimSpace(q.Get("types")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if strings.TrimSpace(p) == "" {
				continue
			}
			t, ok := ParseRecordType(p)
			if !ok {
				return ListFilter{}, apperr.Invalidf("invalid type %q", strings.TrimSpace(p))
			}
			filter.Types = append(filter.Types, t)
		}
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return ListFilter{}, apperr.Invalid("from must be RFC3339 or YYYY-MM-DD")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return ListFilter{}, apperr.Invalid("to must be RFC3339 or YYYY-MM-DD")
		}
		filter.To = &t
	}

	filter.Query = strings.TrimSpace(q.Get("q"))

	if v := q.Get("include_voided"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ListFilter{}, apperr.Invalid("include_voided must be a boolean")
		}
		filter.IncludeVoided = b
	}

	return filter, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func toRecordResponse(rec Record) recordResponse {
	return recordResponse{
		ID:             rec.ID,
		PetID:          rec.PetID,
		Type:           rec.Type,
		Date:           rec.Date,
		Title:          rec.Title,
		Notes:          rec.Notes,
		VeterinarianID: rec.VeterinarianID,
		Details:        rec.Details,
		Cost:           rec.Cost,
		Status:         rec.Status,
		CreatedBy:      rec.CreatedBy,
		UpdatedBy:      rec.UpdatedBy,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
