package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/technology"
)

// TechnologyServiceInterface は技術タグハンドラーが必要とするサービスインターフェース。
type TechnologyServiceInterface interface {
	Create(ctx context.Context, in technology.Input) (*model.Technology, error)
	Get(ctx context.Context, id string) (*model.Technology, error)
	List(ctx context.Context) ([]*model.Technology, error)
	Update(ctx context.Context, id string, in technology.Input) (*model.Technology, error)
	Delete(ctx context.Context, id string) error
}

// TechnologyHandler は技術タグ管理のHTTPハンドラー。
type TechnologyHandler struct {
	service TechnologyServiceInterface
}

// NewTechnologyHandler はTechnologyHandlerを生成する。
func NewTechnologyHandler(service TechnologyServiceInterface) *TechnologyHandler {
	return &TechnologyHandler{service: service}
}

type technologyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// technologyResponse は技術タグのAPIレスポンス。
type technologyResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toTechnologyResponse(t *model.Technology) technologyResponse {
	return technologyResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
	}
}

// List は技術タグを名前順で返す。
// GET /api/technologies
func (h *TechnologyHandler) List(w http.ResponseWriter, r *http.Request) {
	techs, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]technologyResponse, len(techs))
	for i, t := range techs {
		results[i] = toTechnologyResponse(t)
	}
	writeJSON(w, http.StatusOK, results)
}

// Get は技術タグを1件返す。
// GET /api/technologies/{id}
func (h *TechnologyHandler) Get(w http.ResponseWriter, r *http.Request) {
	tech, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTechnologyResponse(tech))
}

// Create は技術タグを登録する。
// POST /api/technologies
func (h *TechnologyHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	var req technologyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tech, err := h.service.Create(r.Context(), technology.Input{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTechnologyResponse(tech))
}

// Update は技術タグを更新する。
// PUT /api/technologies/{id}
func (h *TechnologyHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	var req technologyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tech, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), technology.Input{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTechnologyResponse(tech))
}

// Delete は技術タグを削除する。割り当て済みのプロジェクトは残る。
// DELETE /api/technologies/{id}
func (h *TechnologyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
