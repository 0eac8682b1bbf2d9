package handler

import (
	"context"
	"io"
	"strings"

	"github.com/hitoshi/portfolio/internal/auth"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/project"
	"github.com/hitoshi/portfolio/internal/technology"
	"github.com/hitoshi/portfolio/internal/user"
)

// MediaURLPrefix はアップロード画像を公開するURLの接頭辞。
const MediaURLPrefix = "/media/"

// ProjectServiceAdapter は project.Service を ProjectServiceInterface に適合させるアダプタ。
type ProjectServiceAdapter struct {
	svc *project.Service
}

// NewProjectServiceAdapter はProjectServiceAdapterを生成する。
func NewProjectServiceAdapter(svc *project.Service) *ProjectServiceAdapter {
	return &ProjectServiceAdapter{svc: svc}
}

// Create はプロジェクトを作成しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) Create(ctx context.Context, ownerID string, in project.CreateInput) (*projectResponse, error) {
	return a.one(a.svc.Create(ctx, ownerID, in))
}

// Get はプロジェクトをhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) Get(ctx context.Context, id string) (*projectResponse, error) {
	return a.one(a.svc.Get(ctx, id))
}

// List はプロジェクト一覧をhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) List(ctx context.Context, ownerID string) ([]projectResponse, error) {
	projects, err := a.svc.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p, a.svc.Excerpt(p))
	}
	return results, nil
}

// Update はプロジェクトを更新しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) Update(ctx context.Context, userID, id string, in project.UpdateInput) (*projectResponse, error) {
	return a.one(a.svc.Update(ctx, userID, id, in))
}

// SetTechnologies は技術の割り当てを置き換えhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) SetTechnologies(ctx context.Context, userID, id string, technologyIDs []string) (*projectResponse, error) {
	return a.one(a.svc.SetTechnologies(ctx, userID, id, technologyIDs))
}

// SetImage はメイン画像を設定しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) SetImage(ctx context.Context, userID, id string, r io.Reader) (*projectResponse, error) {
	return a.one(a.svc.SetImage(ctx, userID, id, r))
}

// ImportImage はリモート画像を取り込みhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) ImportImage(ctx context.Context, userID, id, rawURL string) (*projectResponse, error) {
	return a.one(a.svc.ImportImage(ctx, userID, id, rawURL))
}

// ClearImage はメイン画像を解除しhandlerレスポンス型で返す。
func (a *ProjectServiceAdapter) ClearImage(ctx context.Context, userID, id string) (*projectResponse, error) {
	return a.one(a.svc.ClearImage(ctx, userID, id))
}

// Delete はプロジェクトを削除する。
func (a *ProjectServiceAdapter) Delete(ctx context.Context, userID, id string) error {
	return a.svc.Delete(ctx, userID, id)
}

func (a *ProjectServiceAdapter) one(p *model.Project, err error) (*projectResponse, error) {
	if err != nil {
		return nil, err
	}
	resp := toProjectResponse(p, a.svc.Excerpt(p))
	return &resp, nil
}

// toProjectResponse はドメインのProjectをhandlerのレスポンス型に変換する。
func toProjectResponse(p *model.Project, excerpt string) projectResponse {
	techs := make([]technologyResponse, len(p.Technologies))
	for i := range p.Technologies {
		techs[i] = toTechnologyResponse(&p.Technologies[i])
	}
	return projectResponse{
		ID:                  p.ID,
		OwnerID:             p.OwnerID,
		Title:               p.Title,
		Description:         p.Description,
		Excerpt:             excerpt,
		Technologies:        techs,
		DisplayTechnologies: p.DisplayTechnologies(),
		MainImage:           mediaURL(p.MainImage),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// mediaURL はメディアルートからの相対パスを公開URLに変換する。
func mediaURL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return MediaURLPrefix + strings.TrimPrefix(relPath, "/")
}

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc *user.Service
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc}
}

// Withdraw はユーザーの退会処理を実行する。
func (a *UserServiceAdapter) Withdraw(ctx context.Context, userID string) error {
	return a.svc.Withdraw(ctx, userID)
}

// --- compile-time interface checks ---

var _ ProjectServiceInterface = (*ProjectServiceAdapter)(nil)
var _ UserServiceInterface = (*UserServiceAdapter)(nil)
var _ TechnologyServiceInterface = (*technology.Service)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)
