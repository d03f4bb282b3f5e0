package directory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreateDepartment(ctx context.Context, d *Department) (*Department, error) {
	args := m.Called(ctx, d)
	if v := args.Get(0); v != nil {
		return v.(*Department), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*Department), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Department), args.Error(1)
}

func (m *mockRepository) UpdateDepartment(ctx context.Context, d *Department) (*Department, error) {
	args := m.Called(ctx, d)
	if fn, ok := args.Get(0).(func(context.Context, *Department) *Department); ok {
		return fn(ctx, d), args.Error(1)
	}
	if v := args.Get(0); v != nil {
		return v.(*Department), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) CountDepartments(ctx context.Context, ids []uuid.UUID) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) CreateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	args := m.Called(ctx, d)
	if v := args.Get(0); v != nil {
		return v.(*Doctor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*Doctor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Doctor), args.Error(1)
}

func (m *mockRepository) ListDoctorsByDepartment(ctx context.Context, departmentID uuid.UUID) ([]Doctor, error) {
	args := m.Called(ctx, departmentID)
	return args.Get(0).([]Doctor), args.Error(1)
}

func (m *mockRepository) UpdateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	args := m.Called(ctx, d)
	if fn, ok := args.Get(0).(func(context.Context, *Doctor) *Doctor); ok {
		return fn(ctx, d), args.Error(1)
	}
	if v := args.Get(0); v != nil {
		return v.(*Doctor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) SearchDepartments(ctx context.Context, query string) ([]Department, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]Department), args.Error(1)
}

func (m *mockRepository) SearchDoctors(ctx context.Context, query string) ([]Doctor, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]Doctor), args.Error(1)
}

func newTestService() (*Service, *mockRepository, *blob.MemoryStore) {
	repo := &mockRepository{}
	store := blob.NewMemoryStore(1 << 20)
	return NewService(repo, store, logger.Discard()), repo, store
}

func image(name string) *blob.Upload {
	return &blob.Upload{OriginalName: name, ContentType: "image/png", Body: bytes.NewReader([]byte("png-bytes"))}
}

func TestCreateDepartmentDefaultsQuota(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	repo.On("CreateDepartment", ctx, mock.MatchedBy(func(d *Department) bool {
		return d.Name == "Cardiology" && d.DailyQuota == DefaultDailyQuota && d.Image == nil
	})).Return(&Department{ID: uuid.New(), Name: "Cardiology", DailyQuota: DefaultDailyQuota}, nil)

	d, err := svc.CreateDepartment(ctx, DepartmentInput{Name: " Cardiology ", Description: "Heart care"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, d.DailyQuota)
	repo.AssertExpectations(t)
}

func TestCreateDepartmentValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	negative := -1

	_, err := svc.CreateDepartment(context.Background(), DepartmentInput{Name: "X", Description: "Y", DailyQuota: &negative}, nil)
	assert.ErrorIs(t, err, ErrNegativeQuota)

	_, err = svc.CreateDepartment(context.Background(), DepartmentInput{Name: "X"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "description")

	repo.AssertNotCalled(t, "CreateDepartment", mock.Anything, mock.Anything)
}

func TestCreateDepartmentKeepsZeroQuota(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	zero := 0

	repo.On("CreateDepartment", ctx, mock.MatchedBy(func(d *Department) bool { return d.DailyQuota == 0 })).
		Return(&Department{ID: uuid.New(), DailyQuota: 0}, nil)

	d, err := svc.CreateDepartment(ctx, DepartmentInput{Name: "Closed", Description: "Renovating", DailyQuota: &zero}, nil)
	require.NoError(t, err)
	assert.Zero(t, d.DailyQuota)
}

func TestCreateDepartmentRemovesImageWhenInsertFails(t *testing.T) {
	svc, repo, store := newTestService()
	ctx := context.Background()

	var stored *blob.Ref
	repo.On("CreateDepartment", ctx, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*Department).Image
	}).Return(nil, errors.New("db down"))

	_, err := svc.CreateDepartment(ctx, DepartmentInput{Name: "X", Description: "Y"}, image("x.png"))
	require.Error(t, err)
	require.NotNil(t, stored)
	assert.False(t, store.Has(stored.Filename))
}

func TestCreateDepartmentFailsWhenUploadFails(t *testing.T) {
	svc, repo, store := newTestService()
	store.FailPut = true

	_, err := svc.CreateDepartment(context.Background(), DepartmentInput{Name: "X", Description: "Y"}, image("x.png"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	repo.AssertNotCalled(t, "CreateDepartment", mock.Anything, mock.Anything)
}

func TestUpdateDepartmentSwapsImage(t *testing.T) {
	svc, repo, store := newTestService()
	ctx := context.Background()

	old, err := store.Put(ctx, *image("old.png"))
	require.NoError(t, err)
	id := uuid.New()
	current := &Department{ID: id, Name: "Cardiology", Description: "Heart", DailyQuota: 10, Image: old}

	repo.On("GetDepartment", ctx, id).Return(current, nil)
	repo.On("UpdateDepartment", ctx, mock.MatchedBy(func(d *Department) bool {
		return d.DailyQuota == 20 && d.Name == "Cardiology" && d.Image != nil && d.Image.Filename != old.Filename
	})).Return(func(ctx context.Context, d *Department) *Department { return d }, nil)

	quota := 20
	updated, err := svc.UpdateDepartment(ctx, id, DepartmentPatch{DailyQuota: &quota}, image("new.png"))
	require.NoError(t, err)

	assert.Equal(t, 20, updated.DailyQuota)
	assert.False(t, store.Has(old.Filename))
	assert.True(t, store.Has(updated.Image.Filename))
	repo.AssertExpectations(t)
}

func TestUpdateDepartmentToleratesOldImageDeleteFailure(t *testing.T) {
	svc, repo, store := newTestService()
	ctx := context.Background()

	id := uuid.New()
	current := &Department{ID: id, Name: "Cardiology", Description: "Heart", Image: &blob.Ref{Filename: "gone.png"}}
	repo.On("GetDepartment", ctx, id).Return(current, nil)
	repo.On("UpdateDepartment", ctx, mock.Anything).Return(func(ctx context.Context, d *Department) *Department { return d }, nil)
	store.FailDelete = true

	_, err := svc.UpdateDepartment(ctx, id, DepartmentPatch{}, image("new.png"))
	assert.NoError(t, err)
}

func TestUpdateDepartmentNotFound(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	repo.On("GetDepartment", ctx, id).Return(nil, ErrDepartmentNotFound)

	_, err := svc.UpdateDepartment(ctx, id, DepartmentPatch{}, nil)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}

func TestDeleteDepartmentRemovesImage(t *testing.T) {
	svc, repo, store := newTestService()
	ctx := context.Background()

	ref, err := store.Put(ctx, *image("d.png"))
	require.NoError(t, err)
	id := uuid.New()
	repo.On("GetDepartment", ctx, id).Return(&Department{ID: id, Image: ref}, nil)
	repo.On("DeleteDepartment", ctx, id).Return(nil)

	require.NoError(t, svc.DeleteDepartment(ctx, id))
	assert.False(t, store.Has(ref.Filename))
}

func TestCreateDoctorChecksDepartments(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, err := svc.CreateDoctor(ctx, DoctorInput{Name: "Dr. Reyes", Specialization: "Cardiology"}, nil)
	assert.ErrorIs(t, err, ErrNoDepartments)

	repo.On("CountDepartments", ctx, []uuid.UUID{a, b}).Return(1, nil).Once()
	_, err = svc.CreateDoctor(ctx, DoctorInput{Name: "Dr. Reyes", Specialization: "Cardiology", DepartmentIDs: []uuid.UUID{a, b, a}}, nil)
	assert.ErrorIs(t, err, ErrUnknownDepartment)

	repo.On("CountDepartments", ctx, []uuid.UUID{a, b}).Return(2, nil).Once()
	repo.On("CreateDoctor", ctx, mock.MatchedBy(func(d *Doctor) bool {
		return len(d.Departments) == 2 && d.Name == "Dr. Reyes"
	})).Return(&Doctor{ID: uuid.New(), Name: "Dr. Reyes"}, nil)

	doc, err := svc.CreateDoctor(ctx, DoctorInput{Name: "Dr. Reyes", Specialization: "Cardiology", DepartmentIDs: []uuid.UUID{a, b, a}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Reyes", doc.Name)
	repo.AssertExpectations(t)
}

func TestUpdateDoctorKeepsDepartmentsWhenUnset(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	deps := []DepartmentSummary{{ID: uuid.New(), Name: "Cardiology"}}

	repo.On("GetDoctor", ctx, id).Return(&Doctor{ID: id, Name: "Dr. A", Specialization: "Heart", Departments: deps}, nil)
	repo.On("UpdateDoctor", ctx, mock.MatchedBy(func(d *Doctor) bool {
		return d.Specialization == "Cardiac surgery" && len(d.Departments) == 1
	})).Return(func(ctx context.Context, d *Doctor) *Doctor { return d }, nil)

	spec := "Cardiac surgery"
	doc, err := svc.UpdateDoctor(ctx, id, DoctorPatch{Specialization: &spec}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Dr. A", doc.Name)
	repo.AssertNotCalled(t, "CountDepartments", mock.Anything, mock.Anything)
}

func TestListDoctorsByMissingDepartment(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	repo.On("GetDepartment", ctx, id).Return(nil, ErrDepartmentNotFound)

	_, err := svc.ListDoctorsByDepartment(ctx, id)
	assert.ErrorIs(t, err, ErrDepartmentNotFound)
}

func TestSearch(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Search(ctx, "   ")
	require.ErrorIs(t, err, ErrQueryRequired)
	assert.Equal(t, "Search query is required.", err.Error())

	repo.On("SearchDepartments", ctx, "cardio").Return([]Department{{Name: "Cardiology"}}, nil)
	repo.On("SearchDoctors", ctx, "cardio").Return([]Doctor(nil), nil)

	res, err := svc.Search(ctx, " cardio ")
	require.NoError(t, err)
	assert.Len(t, res.Departments, 1)
	assert.NotNil(t, res.Doctors)
	assert.Empty(t, res.Doctors)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\% off\_now%`, likePattern("50% off_now"))
}
