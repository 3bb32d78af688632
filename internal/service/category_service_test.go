package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/repository"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type mockCategoryRepo struct {
	categories []models.Category
	created    *models.Category
	createErr  error
	listErr    error
}

func (m *mockCategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.categories, nil
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id string) (*models.Category, error) {
	for i := range m.categories {
		if m.categories[i].ID == id {
			return &m.categories[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = category
	return nil
}

func TestCategoryCreateTrimsAndAssignsID(t *testing.T) {
	repo := &mockCategoryRepo{}
	svc := NewCategoryService(repo, nil, nil)

	category, err := svc.Create(context.Background(), adminActor(), CreateCategoryRequest{
		Name:        "  Programming  ",
		Description: " Languages and tooling ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, category.ID)
	assert.Equal(t, "Programming", category.Name)
	assert.Equal(t, "Languages and tooling", category.Description)
	require.NotNil(t, repo.created)
}

func TestCategoryCreateRequiresAdmin(t *testing.T) {
	svc := NewCategoryService(&mockCategoryRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), instructorActor("ins1"), CreateCategoryRequest{Name: "Design"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCategoryCreateDuplicateName(t *testing.T) {
	repo := &mockCategoryRepo{createErr: repository.ErrDuplicateCategory}
	svc := NewCategoryService(repo, nil, nil)

	_, err := svc.Create(context.Background(), adminActor(), CreateCategoryRequest{Name: "Programming"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCategoryCreateValidatesName(t *testing.T) {
	svc := NewCategoryService(&mockCategoryRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), adminActor(), CreateCategoryRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCategoryGetNotFound(t *testing.T) {
	svc := NewCategoryService(&mockCategoryRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCategoryListStoreFailure(t *testing.T) {
	svc := NewCategoryService(&mockCategoryRepo{listErr: sql.ErrConnDone}, nil, nil)

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Retryable(err))
}
