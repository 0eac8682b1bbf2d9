package project

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/portfolio/internal/metrics"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/repository"
	"github.com/hitoshi/portfolio/internal/security"
)

const (
	ownerID   = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	otherID   = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	projectID = "cccccccc-cccc-cccc-cccc-cccccccccccc"
	djangoID  = "00000000-0000-0000-0000-000000000001"
	pythonID  = "00000000-0000-0000-0000-000000000002"
	pgID      = "00000000-0000-0000-0000-000000000003"
	htmxID    = "00000000-0000-0000-0000-000000000004"
)

var catalog = map[string]*model.Technology{
	djangoID: {ID: djangoID, Name: "Django", Description: "Web framework"},
	pythonID: {ID: pythonID, Name: "Python", Description: "Language"},
	pgID:     {ID: pgID, Name: "PostgreSQL", Description: "Database"},
	htmxID:   {ID: htmxID, Name: "htmx", Description: "Hypermedia"},
}

// --- モック ---

type mockProjectRepo struct {
	findByIDFn        func(ctx context.Context, id string) (*model.Project, error)
	listFn            func(ctx context.Context, ownerID string) ([]*model.Project, error)
	createFn          func(ctx context.Context, p *model.Project) error
	updateFn          func(ctx context.Context, p *model.Project) error
	setTechnologiesFn func(ctx context.Context, projectID string, ids []string, updatedAt time.Time) error
	updateImageFn     func(ctx context.Context, projectID, path string, updatedAt time.Time) error
	deleteFn          func(ctx context.Context, id string) error
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProjectRepo) List(ctx context.Context, ownerID string) ([]*model.Project, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return []*model.Project{}, nil
}

func (m *mockProjectRepo) Create(ctx context.Context, p *model.Project) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockProjectRepo) Update(ctx context.Context, p *model.Project) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockProjectRepo) SetTechnologies(ctx context.Context, projectID string, ids []string, updatedAt time.Time) error {
	if m.setTechnologiesFn != nil {
		return m.setTechnologiesFn(ctx, projectID, ids, updatedAt)
	}
	return nil
}

func (m *mockProjectRepo) UpdateImage(ctx context.Context, projectID, path string, updatedAt time.Time) error {
	if m.updateImageFn != nil {
		return m.updateImageFn(ctx, projectID, path, updatedAt)
	}
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProjectRepo) ListImagePaths(ctx context.Context) ([]string, error) {
	return nil, nil
}

var _ repository.ProjectRepository = (*mockProjectRepo)(nil)

type mockTechFinder struct {
	calls [][]string
}

func (m *mockTechFinder) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Technology, error) {
	m.calls = append(m.calls, ids)
	found := map[string]*model.Technology{}
	for _, id := range ids {
		if t, ok := catalog[id]; ok {
			found[id] = t
		}
	}
	return found, nil
}

type mockImageStore struct {
	savePath   string
	saveErr    error
	importPath string
	importErr  error
	deleted    []string
}

func (m *mockImageStore) Save(r io.Reader) (string, error) {
	io.Copy(io.Discard, r)
	return m.savePath, m.saveErr
}

func (m *mockImageStore) Import(ctx context.Context, rawURL string) (string, error) {
	return m.importPath, m.importErr
}

func (m *mockImageStore) Delete(relPath string) error {
	m.deleted = append(m.deleted, relPath)
	return nil
}

type mockMetrics struct {
	metrics.NopCollector
	projectsCreated int
	imagesStored    map[string]int
}

func (m *mockMetrics) RecordProjectCreated() {
	m.projectsCreated++
}

func (m *mockMetrics) RecordImageStored(source string) {
	if m.imagesStored == nil {
		m.imagesStored = map[string]int{}
	}
	m.imagesStored[source]++
}

// --- ヘルパー ---

type fixture struct {
	svc     *Service
	repo    *mockProjectRepo
	techs   *mockTechFinder
	images  *mockImageStore
	metrics *mockMetrics
	clock   time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:    &mockProjectRepo{},
		techs:   &mockTechFinder{},
		images:  &mockImageStore{},
		metrics: &mockMetrics{},
		clock:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.repo, f.techs, f.images, security.NewDescriptionSanitizer(), f.metrics)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

// withExisting はFindByIDが既存プロジェクトを返すよう設定する。
func (f *fixture) withExisting(p *model.Project) {
	f.repo.findByIDFn = func(ctx context.Context, id string) (*model.Project, error) {
		if id != p.ID {
			return nil, nil
		}
		cp := *p
		cp.Technologies = append([]model.Technology{}, p.Technologies...)
		return &cp, nil
	}
}

func existingProject() *model.Project {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.Project{
		ID:           projectID,
		OwnerID:      ownerID,
		Title:        "Portfolio",
		Description:  "<p>My site</p>",
		Technologies: []model.Technology{*catalog[djangoID]},
		MainImage:    "portfolio/old.png",
		Timestamps:   model.Timestamps{CreatedAt: created, UpdatedAt: created},
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

func technologyNames(p *model.Project) []string {
	names := []string{}
	for _, t := range p.Technologies {
		names = append(names, t.Name)
	}
	return names
}

// --- Create ---

func TestService_Create_PersistsWithOrderedTechnologies(t *testing.T) {
	f := newFixture()
	var created *model.Project
	f.repo.createFn = func(ctx context.Context, p *model.Project) error {
		created = p
		return nil
	}

	p, err := f.svc.Create(context.Background(), ownerID, CreateInput{
		Title:         "  Portfolio ",
		Description:   `<p>Hello</p><script>alert(1)</script>`,
		TechnologyIDs: []string{pythonID, djangoID, pgID, htmxID},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created != p {
		t.Fatal("expected returned project to be persisted")
	}
	if p.OwnerID != ownerID {
		t.Errorf("OwnerID = %q, want %q", p.OwnerID, ownerID)
	}
	if p.Title != "Portfolio" {
		t.Errorf("Title = %q, want trimmed", p.Title)
	}
	if strings.Contains(p.Description, "script") {
		t.Errorf("Description not sanitized: %q", p.Description)
	}
	if got := technologyNames(p); !reflect.DeepEqual(got, []string{"Python", "Django", "PostgreSQL", "htmx"}) {
		t.Errorf("technologies = %v, want assignment order", got)
	}
	if got := p.DisplayTechnologies(); got != "Python, Django, PostgreSQL" {
		t.Errorf("DisplayTechnologies() = %q", got)
	}
	if !p.CreatedAt.Equal(f.clock) || !p.UpdatedAt.Equal(f.clock) {
		t.Errorf("timestamps = %v / %v, want %v", p.CreatedAt, p.UpdatedAt, f.clock)
	}
	if f.metrics.projectsCreated != 1 {
		t.Errorf("projects created metric = %d, want 1", f.metrics.projectsCreated)
	}
}

func TestService_Create_NoTechnologiesSkipsLookup(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Create(context.Background(), ownerID, CreateInput{Title: "Empty"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(f.techs.calls) != 0 {
		t.Errorf("FindByIDs should not be called, got %v", f.techs.calls)
	}
	if p.Technologies == nil || len(p.Technologies) != 0 {
		t.Errorf("Technologies = %#v, want empty slice", p.Technologies)
	}
	if p.DisplayTechnologies() != "" {
		t.Errorf("DisplayTechnologies() = %q, want empty", p.DisplayTechnologies())
	}
}

func TestService_Create_DuplicateTechnologyIDsKeepFirst(t *testing.T) {
	f := newFixture()

	p, err := f.svc.Create(context.Background(), ownerID, CreateInput{
		Title:         "Dupes",
		TechnologyIDs: []string{djangoID, pythonID, djangoID, strings.ToUpper(pythonID)},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got := technologyNames(p); !reflect.DeepEqual(got, []string{"Django", "Python"}) {
		t.Errorf("technologies = %v, want [Django Python]", got)
	}
	if len(f.techs.calls) != 1 || len(f.techs.calls[0]) != 2 {
		t.Errorf("FindByIDs calls = %v, want one call with 2 IDs", f.techs.calls)
	}
}

func TestService_Create_UnknownTechnology(t *testing.T) {
	f := newFixture()
	f.repo.createFn = func(ctx context.Context, p *model.Project) error {
		t.Fatal("Create should not be called")
		return nil
	}

	_, err := f.svc.Create(context.Background(), ownerID, CreateInput{
		Title:         "Bad",
		TechnologyIDs: []string{djangoID, "99999999-9999-9999-9999-999999999999"},
	})
	assertAPIErrorCode(t, err, model.ErrCodeTechnologyNotFound)
}

func TestService_Create_MalformedTechnologyID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), ownerID, CreateInput{
		Title:         "Bad",
		TechnologyIDs: []string{"django"},
	})
	assertAPIErrorCode(t, err, model.ErrCodeTechnologyNotFound)
	if len(f.techs.calls) != 0 {
		t.Error("FindByIDs should not be called for malformed IDs")
	}
}

func TestService_Create_TitleValidation(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"empty", "   ", true},
		{"101 characters", strings.Repeat("t", 101), true},
		{"100 characters", strings.Repeat("題", 100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.svc.Create(context.Background(), ownerID, CreateInput{Title: tt.title})
			if tt.wantErr {
				assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
				return
			}
			if err != nil {
				t.Errorf("expected success, got %v", err)
			}
		})
	}
}

// --- Get / List ---

func TestService_Get_InvalidID(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFn = func(ctx context.Context, id string) (*model.Project, error) {
		t.Fatal("FindByID should not be called")
		return nil, nil
	}

	_, err := f.svc.Get(context.Background(), "1")
	assertAPIErrorCode(t, err, model.ErrCodeProjectNotFound)
}

func TestService_Get_Missing(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Get(context.Background(), projectID)
	assertAPIErrorCode(t, err, model.ErrCodeProjectNotFound)
}

func TestService_List_ByOwner(t *testing.T) {
	f := newFixture()
	var gotOwner string
	f.repo.listFn = func(ctx context.Context, owner string) ([]*model.Project, error) {
		gotOwner = owner
		return []*model.Project{existingProject()}, nil
	}

	projects, err := f.svc.List(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if gotOwner != ownerID {
		t.Errorf("owner filter = %q, want %q", gotOwner, ownerID)
	}
	if len(projects) != 1 {
		t.Errorf("expected 1 project, got %d", len(projects))
	}
}

func TestService_List_MalformedOwnerReturnsEmpty(t *testing.T) {
	f := newFixture()
	f.repo.listFn = func(ctx context.Context, owner string) ([]*model.Project, error) {
		t.Fatal("List should not be called")
		return nil, nil
	}

	projects, err := f.svc.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if projects == nil || len(projects) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", projects)
	}
}

// --- Update ---

func TestService_Update_KeepsCreatedAtAndAdvancesUpdatedAt(t *testing.T) {
	f := newFixture()
	orig := existingProject()
	f.withExisting(orig)
	var updated *model.Project
	f.repo.updateFn = func(ctx context.Context, p *model.Project) error {
		updated = p
		return nil
	}

	p, err := f.svc.Update(context.Background(), ownerID, projectID, UpdateInput{Title: "Renamed", Description: "<em>new</em>"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated == nil {
		t.Fatal("expected repository Update to be called")
	}
	if p.Title != "Renamed" || p.Description != "<em>new</em>" {
		t.Errorf("got %q / %q", p.Title, p.Description)
	}
	if !p.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", orig.CreatedAt, p.CreatedAt)
	}
	if !p.UpdatedAt.Equal(f.clock) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, f.clock)
	}
}

func TestService_Update_NonOwnerForbidden(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.repo.updateFn = func(ctx context.Context, p *model.Project) error {
		t.Fatal("Update should not be called")
		return nil
	}

	_, err := f.svc.Update(context.Background(), otherID, projectID, UpdateInput{Title: "Hijack"})
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

func TestService_Update_DeletedConcurrentlyIsNotFound(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.repo.updateFn = func(ctx context.Context, p *model.Project) error {
		return repository.ErrNotFound
	}

	_, err := f.svc.Update(context.Background(), ownerID, projectID, UpdateInput{Title: "Renamed"})
	assertAPIErrorCode(t, err, model.ErrCodeProjectNotFound)
}

// --- SetTechnologies ---

func TestService_SetTechnologies_ReplacesInOrder(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	var gotIDs []string
	var gotUpdatedAt time.Time
	f.repo.setTechnologiesFn = func(ctx context.Context, id string, ids []string, updatedAt time.Time) error {
		gotIDs = ids
		gotUpdatedAt = updatedAt
		return nil
	}

	p, err := f.svc.SetTechnologies(context.Background(), ownerID, projectID, []string{pgID, pythonID, pgID})
	if err != nil {
		t.Fatalf("SetTechnologies returned error: %v", err)
	}
	if !reflect.DeepEqual(gotIDs, []string{pgID, pythonID}) {
		t.Errorf("persisted IDs = %v", gotIDs)
	}
	if !gotUpdatedAt.Equal(f.clock) {
		t.Errorf("updatedAt = %v, want %v", gotUpdatedAt, f.clock)
	}
	if p.DisplayTechnologies() != "PostgreSQL, Python" {
		t.Errorf("DisplayTechnologies() = %q", p.DisplayTechnologies())
	}
}

func TestService_SetTechnologies_EmptyClearsAll(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	called := false
	f.repo.setTechnologiesFn = func(ctx context.Context, id string, ids []string, updatedAt time.Time) error {
		called = true
		if len(ids) != 0 {
			t.Errorf("expected no IDs, got %v", ids)
		}
		return nil
	}

	p, err := f.svc.SetTechnologies(context.Background(), ownerID, projectID, nil)
	if err != nil {
		t.Fatalf("SetTechnologies returned error: %v", err)
	}
	if !called {
		t.Error("expected repository SetTechnologies to be called")
	}
	if p.DisplayTechnologies() != "" {
		t.Errorf("DisplayTechnologies() = %q, want empty", p.DisplayTechnologies())
	}
}

func TestService_SetTechnologies_NonOwnerForbidden(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())

	_, err := f.svc.SetTechnologies(context.Background(), otherID, projectID, []string{djangoID})
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

// --- Image ---

func TestService_SetImage_ReplacesAndRemovesOldFile(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.images.savePath = "portfolio/new.png"
	var gotPath string
	f.repo.updateImageFn = func(ctx context.Context, id, path string, updatedAt time.Time) error {
		gotPath = path
		return nil
	}

	p, err := f.svc.SetImage(context.Background(), ownerID, projectID, strings.NewReader("img"))
	if err != nil {
		t.Fatalf("SetImage returned error: %v", err)
	}
	if gotPath != "portfolio/new.png" || p.MainImage != "portfolio/new.png" {
		t.Errorf("image path = %q / %q", gotPath, p.MainImage)
	}
	if !reflect.DeepEqual(f.images.deleted, []string{"portfolio/old.png"}) {
		t.Errorf("deleted = %v, want old image removed", f.images.deleted)
	}
	if f.metrics.imagesStored[metrics.ImageSourceUpload] != 1 {
		t.Errorf("images stored metric = %v", f.metrics.imagesStored)
	}
}

func TestService_SetImage_StoreErrorIsReturned(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.images.saveErr = model.NewInvalidImageError("unsupported content type text/plain")

	_, err := f.svc.SetImage(context.Background(), ownerID, projectID, strings.NewReader("text"))
	assertAPIErrorCode(t, err, model.ErrCodeInvalidImage)
	if len(f.images.deleted) != 0 {
		t.Errorf("nothing should be deleted, got %v", f.images.deleted)
	}
}

func TestService_SetImage_DBFailureRemovesNewFile(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.images.savePath = "portfolio/new.png"
	f.repo.updateImageFn = func(ctx context.Context, id, path string, updatedAt time.Time) error {
		return errors.New("db error")
	}

	_, err := f.svc.SetImage(context.Background(), ownerID, projectID, strings.NewReader("img"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(f.images.deleted, []string{"portfolio/new.png"}) {
		t.Errorf("deleted = %v, want new image cleaned up", f.images.deleted)
	}
}

func TestService_SetImage_DeletedConcurrentlyIsNotFound(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.images.savePath = "portfolio/new.png"
	f.repo.updateImageFn = func(ctx context.Context, id, path string, updatedAt time.Time) error {
		return repository.ErrNotFound
	}

	_, err := f.svc.SetImage(context.Background(), ownerID, projectID, strings.NewReader("img"))
	assertAPIErrorCode(t, err, model.ErrCodeProjectNotFound)
	if !reflect.DeepEqual(f.images.deleted, []string{"portfolio/new.png"}) {
		t.Errorf("deleted = %v, want new image cleaned up", f.images.deleted)
	}
}

func TestService_SetImage_NonOwnerForbiddenBeforeSaving(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.images.saveErr = errors.New("Save should not be called")

	_, err := f.svc.SetImage(context.Background(), otherID, projectID, strings.NewReader("img"))
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

func TestService_ImportImage(t *testing.T) {
	f := newFixture()
	p := existingProject()
	p.MainImage = ""
	f.withExisting(p)
	f.images.importPath = "portfolio/remote.jpg"

	got, err := f.svc.ImportImage(context.Background(), ownerID, projectID, "https://example.com/a.jpg")
	if err != nil {
		t.Fatalf("ImportImage returned error: %v", err)
	}
	if got.MainImage != "portfolio/remote.jpg" {
		t.Errorf("MainImage = %q", got.MainImage)
	}
	if len(f.images.deleted) != 0 {
		t.Errorf("nothing should be deleted, got %v", f.images.deleted)
	}
	if f.metrics.imagesStored[metrics.ImageSourceImport] != 1 {
		t.Errorf("images stored metric = %v", f.metrics.imagesStored)
	}
}

func TestService_ImportImage_SSRFBlocked(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.images.importErr = model.NewSSRFBlockedError()

	_, err := f.svc.ImportImage(context.Background(), ownerID, projectID, "http://169.254.169.254/latest")
	assertAPIErrorCode(t, err, model.ErrCodeSSRFBlocked)
}

func TestService_ImportImage_EmptyURL(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())

	_, err := f.svc.ImportImage(context.Background(), ownerID, projectID, "")
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

func TestService_ClearImage(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	var gotPath = "unset"
	f.repo.updateImageFn = func(ctx context.Context, id, path string, updatedAt time.Time) error {
		gotPath = path
		return nil
	}

	p, err := f.svc.ClearImage(context.Background(), ownerID, projectID)
	if err != nil {
		t.Fatalf("ClearImage returned error: %v", err)
	}
	if gotPath != "" || p.HasImage() {
		t.Errorf("image not cleared: repo=%q project=%q", gotPath, p.MainImage)
	}
	if !reflect.DeepEqual(f.images.deleted, []string{"portfolio/old.png"}) {
		t.Errorf("deleted = %v", f.images.deleted)
	}
}

func TestService_ClearImage_NoImageIsNoop(t *testing.T) {
	f := newFixture()
	p := existingProject()
	p.MainImage = ""
	f.withExisting(p)
	f.repo.updateImageFn = func(ctx context.Context, id, path string, updatedAt time.Time) error {
		t.Fatal("UpdateImage should not be called")
		return nil
	}

	if _, err := f.svc.ClearImage(context.Background(), ownerID, projectID); err != nil {
		t.Fatalf("ClearImage returned error: %v", err)
	}
}

// --- Delete ---

func TestService_Delete_RemovesImage(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	var deletedID string
	f.repo.deleteFn = func(ctx context.Context, id string) error {
		deletedID = id
		return nil
	}

	if err := f.svc.Delete(context.Background(), ownerID, projectID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if deletedID != projectID {
		t.Errorf("deleted %q, want %q", deletedID, projectID)
	}
	if !reflect.DeepEqual(f.images.deleted, []string{"portfolio/old.png"}) {
		t.Errorf("deleted images = %v", f.images.deleted)
	}
}

func TestService_Delete_NonOwnerForbidden(t *testing.T) {
	f := newFixture()
	f.withExisting(existingProject())
	f.repo.deleteFn = func(ctx context.Context, id string) error {
		t.Fatal("Delete should not be called")
		return nil
	}

	err := f.svc.Delete(context.Background(), otherID, projectID)
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

func TestService_Excerpt(t *testing.T) {
	f := newFixture()
	p := &model.Project{Description: "<p>Hello <strong>world</strong></p>"}

	if got := f.svc.Excerpt(p); got != "Hello world" {
		t.Errorf("Excerpt() = %q, want %q", got, "Hello world")
	}
}
