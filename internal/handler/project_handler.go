package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/project"
)

const (
	// imageFormField は画像アップロードのmultipartフィールド名。
	imageFormField = "image"
	// multipartOverhead は画像以外のmultipartヘッダー分の余裕。
	multipartOverhead = 64 << 10
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	Create(ctx context.Context, ownerID string, in project.CreateInput) (*projectResponse, error)
	Get(ctx context.Context, id string) (*projectResponse, error)
	List(ctx context.Context, ownerID string) ([]projectResponse, error)
	Update(ctx context.Context, userID, id string, in project.UpdateInput) (*projectResponse, error)
	SetTechnologies(ctx context.Context, userID, id string, technologyIDs []string) (*projectResponse, error)
	SetImage(ctx context.Context, userID, id string, r io.Reader) (*projectResponse, error)
	ImportImage(ctx context.Context, userID, id, rawURL string) (*projectResponse, error)
	ClearImage(ctx context.Context, userID, id string) (*projectResponse, error)
	Delete(ctx context.Context, userID, id string) error
}

// ProjectHandlerConfig はプロジェクトハンドラーの設定。
type ProjectHandlerConfig struct {
	MaxImageSize int64 // アップロード画像の最大バイト数
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
	config  ProjectHandlerConfig
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface, config ProjectHandlerConfig) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		config:  config,
	}
}

type createProjectRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	TechnologyIDs []string `json:"technology_ids"`
}

type updateProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type setTechnologiesRequest struct {
	TechnologyIDs []string `json:"technology_ids"`
}

type importImageRequest struct {
	URL string `json:"url"`
}

// projectResponse はプロジェクトのAPIレスポンス。
// MainImage は公開URL（/media/...）で、画像がない場合は空文字列。
type projectResponse struct {
	ID                  string               `json:"id"`
	OwnerID             string               `json:"owner_id"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Excerpt             string               `json:"excerpt"`
	Technologies        []technologyResponse `json:"technologies"`
	DisplayTechnologies string               `json:"display_technologies"`
	MainImage           string               `json:"main_image"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// List はプロジェクト一覧を返す。?owner=<id> で所有者を絞り込む。
// GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("owner"))
}

// ListByUser は指定ユーザーのプロジェクト一覧を返す。
// GET /api/users/{id}/projects
func (h *ProjectHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "id"))
}

func (h *ProjectHandler) list(w http.ResponseWriter, r *http.Request, ownerID string) {
	projects, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get はプロジェクトを1件返す。
// GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create はプロジェクトを作成する。所有者はログインユーザー。
// POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), userID, project.CreateInput{
		Title:         req.Title,
		Description:   req.Description,
		TechnologyIDs: req.TechnologyIDs,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Update はタイトルと説明を更新する。
// PUT /api/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req updateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), project.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete はプロジェクトを削除する。
// DELETE /api/projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetTechnologies は技術の割り当てを指定順で置き換える。
// PUT /api/projects/{id}/technologies
func (h *ProjectHandler) SetTechnologies(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req setTechnologiesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TechnologyIDs == nil {
		req.TechnologyIDs = []string{}
	}

	p, err := h.service.SetTechnologies(r.Context(), userID, chi.URLParam(r, "id"), req.TechnologyIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UploadImage はmultipartの画像をメイン画像として設定する。
// PUT /api/projects/{id}/image
func (h *ProjectHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxImageSize+multipartOverhead)
	file, _, err := r.FormFile(imageFormField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewImageTooLargeError(h.config.MaxImageSize))
			return
		}
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError(imageFormField, "this field is required"))
		return
	}
	defer file.Close()

	p, err := h.service.SetImage(r.Context(), userID, chi.URLParam(r, "id"), file)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ImportImage はリモートURLの画像を取得してメイン画像として設定する。
// POST /api/projects/{id}/image/import
func (h *ProjectHandler) ImportImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req importImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.ImportImage(r.Context(), userID, chi.URLParam(r, "id"), req.URL)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ClearImage はメイン画像の設定を解除する。
// DELETE /api/projects/{id}/image
func (h *ProjectHandler) ClearImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.ClearImage(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
