package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

func validStudentRequest() dto.StudentRequest {
	born := day(2017, time.May, 2)
	return dto.StudentRequest{
		SchoolNumber: "LRN-0099",
		FullName:     "Fay Hale",
		Gender:       "F",
		BirthDate:    &born,
		GradeLevel:   "3",
		Section:      "C",
	}
}

func TestStudentServiceListPagination(t *testing.T) {
	repo := newNutritionFixture().students
	svc := NewStudentService(repo, nil, nil, nil)

	students, pagination, err := svc.List(context.Background(), models.StudentFilter{GradeLevel: "1"})
	require.NoError(t, err)
	assert.Len(t, students, 5)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 5, pagination.TotalCount)
	assert.Equal(t, "1", repo.lastFilter.GradeLevel)
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &fakeStudentRepo{numbers: map[string]string{}}
	cacheRepo := newMemoryCacheRepo()
	svc := NewStudentService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true), nil, nil)

	student, err := svc.Create(context.Background(), validStudentRequest())
	require.NoError(t, err)
	assert.Equal(t, "student-1", student.ID)
	assert.True(t, student.Active)
	assert.Equal(t, "LRN-0099", student.SchoolNumber)
	assert.ElementsMatch(t, []string{"kpi:*", "dashboard:*"}, cacheRepo.deleted)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := NewStudentService(&fakeStudentRepo{}, nil, nil, nil)

	req := validStudentRequest()
	req.BirthDate = nil
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err, "birth date or age is required")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	age := 9
	req.Age = &age
	_, err = svc.Create(context.Background(), req)
	require.NoError(t, err)

	req.Gender = "X"
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
}

func TestStudentServiceCreateDuplicateNumber(t *testing.T) {
	repo := &fakeStudentRepo{numbers: map[string]string{"LRN-0099": "other"}}
	svc := NewStudentService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), validStudentRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestStudentServiceUpdate(t *testing.T) {
	f := newNutritionFixture()
	f.students.numbers = map[string]string{"LRN-0099": "s1"}
	svc := NewStudentService(f.students, nil, nil, nil)

	inactive := false
	req := validStudentRequest()
	req.Active = &inactive
	student, err := svc.Update(context.Background(), "s1", req)
	require.NoError(t, err, "keeping its own number is not a conflict")
	assert.Equal(t, "Fay Hale", student.FullName)
	assert.False(t, student.Active)
	require.Len(t, f.students.updated, 1)

	_, err = svc.Update(context.Background(), "missing", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceDeactivate(t *testing.T) {
	f := newNutritionFixture()
	svc := NewStudentService(f.students, nil, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "s2"))
	assert.Equal(t, []string{"s2"}, f.students.deactivated)

	err := svc.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceGetInternalError(t *testing.T) {
	svc := NewStudentService(&fakeStudentRepo{err: errors.New("db down")}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
