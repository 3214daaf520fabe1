package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/middleware"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
	"github.com/noah-isme/school-health-api/internal/service"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withUser(c *gin.Context, id string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: role})
}

type authServiceMock struct {
	loginReq   models.LoginRequest
	loginErr   error
	logoutUser string
	registered models.RegisterUserRequest
	actor      string
}

func (m *authServiceMock) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginReq = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}, nil
}

func (m *authServiceMock) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2"}, nil
}

func (m *authServiceMock) Logout(_ context.Context, _, userID, _, _ string) error {
	m.logoutUser = userID
	return nil
}

func (m *authServiceMock) RegisterUser(_ context.Context, req models.RegisterUserRequest, actorID string) (*models.UserInfo, error) {
	m.registered = req
	m.actor = actorID
	return &models.UserInfo{ID: "u-new", Email: req.Email, FullName: req.FullName, Role: req.Role}, nil
}

type studentServiceMock struct {
	filter  models.StudentFilter
	created dto.StudentRequest
	getErr  error
}

func (m *studentServiceMock) List(_ context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	m.filter = filter
	return []models.Student{{ID: "s1", FullName: "Ana Cruz"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *studentServiceMock) Get(_ context.Context, id string) (*models.Student, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.Student{ID: id}, nil
}

func (m *studentServiceMock) Create(_ context.Context, req dto.StudentRequest) (*models.Student, error) {
	m.created = req
	return &models.Student{ID: "s-new", FullName: req.FullName}, nil
}

func (m *studentServiceMock) Update(_ context.Context, id string, req dto.StudentRequest) (*models.Student, error) {
	return &models.Student{ID: id, FullName: req.FullName}, nil
}

func (m *studentServiceMock) Deactivate(context.Context, string) error { return nil }

type measurementServiceMock struct {
	studentID  string
	source     models.MeasurementSource
	recordedBy string
	recordErr  error
}

func (m *measurementServiceMock) Record(_ context.Context, studentID string, req dto.RecordMeasurementRequest, source models.MeasurementSource, recordedBy string) (*dto.MeasurementResponse, error) {
	m.studentID, m.source, m.recordedBy = studentID, source, recordedBy
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	return &dto.MeasurementResponse{Measurement: models.Measurement{StudentID: studentID, WeightKG: req.WeightKG, HeightCM: req.HeightCM}}, nil
}

func (m *measurementServiceMock) History(_ context.Context, studentID string) ([]dto.MeasurementResponse, error) {
	return []dto.MeasurementResponse{{Measurement: models.Measurement{StudentID: studentID}}}, nil
}

func (m *measurementServiceMock) Current(context.Context, string) (*dto.StudentStatusResponse, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no measurements")
}

type sensorServiceMock struct {
	deviceID   string
	commitReq  dto.CommitReadingRequest
	recordedBy string
}

func (m *sensorServiceMock) Ingest(_ context.Context, req dto.SensorReadingRequest) (*models.SensorReading, error) {
	return &models.SensorReading{DeviceID: req.DeviceID, WeightKG: req.WeightKG, HeightCM: req.HeightCM}, nil
}

func (m *sensorServiceMock) Latest(_ context.Context, deviceID string) (*models.SensorReading, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no pending reading for device")
}

func (m *sensorServiceMock) Commit(_ context.Context, deviceID string, req dto.CommitReadingRequest, recordedBy string) (*dto.MeasurementResponse, error) {
	m.deviceID, m.commitReq, m.recordedBy = deviceID, req, recordedBy
	return &dto.MeasurementResponse{Measurement: models.Measurement{StudentID: req.StudentID, Source: models.MeasurementSourceSensor}}, nil
}

type programServiceMock struct {
	scope      nutrition.ExclusionScope
	programID  string
	gradeLevel string
	addErr     error
	removed    [2]string
}

func (m *programServiceMock) List(_ context.Context, filter models.FeedingProgramFilter) ([]dto.FeedingProgramResponse, *models.Pagination, error) {
	return nil, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (m *programServiceMock) Get(_ context.Context, id string) (*dto.FeedingProgramResponse, error) {
	return &dto.FeedingProgramResponse{FeedingProgram: models.FeedingProgram{ID: id}}, nil
}

func (m *programServiceMock) Create(_ context.Context, req dto.FeedingProgramRequest) (*dto.FeedingProgramResponse, error) {
	return &dto.FeedingProgramResponse{FeedingProgram: models.FeedingProgram{ID: "p-new", Name: req.Name}}, nil
}

func (m *programServiceMock) Update(_ context.Context, id string, req dto.FeedingProgramRequest) (*dto.FeedingProgramResponse, error) {
	return &dto.FeedingProgramResponse{FeedingProgram: models.FeedingProgram{ID: id, Name: req.Name}}, nil
}

func (m *programServiceMock) End(_ context.Context, id string) (*dto.FeedingProgramResponse, error) {
	return &dto.FeedingProgramResponse{FeedingProgram: models.FeedingProgram{ID: id, Status: models.ProgramStatusEnded}}, nil
}

func (m *programServiceMock) AddBeneficiaries(_ context.Context, programID string, req dto.AddBeneficiariesRequest) ([]models.Beneficiary, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	return []models.Beneficiary{{ProgramID: programID, StudentID: req.StudentIDs[0]}}, nil
}

func (m *programServiceMock) RemoveBeneficiary(_ context.Context, programID, studentID string) error {
	m.removed = [2]string{programID, studentID}
	return nil
}

func (m *programServiceMock) RecordAttendance(_ context.Context, _ string, req dto.FeedingAttendanceRequest) (*models.FeedingAttendance, error) {
	return &models.FeedingAttendance{Date: req.Date, Present: req.Present}, nil
}

func (m *programServiceMock) Eligible(_ context.Context, programID string, scope nutrition.ExclusionScope, gradeLevel string) ([]dto.EligibleStudentResponse, error) {
	m.programID, m.scope, m.gradeLevel = programID, scope, gradeLevel
	return []dto.EligibleStudentResponse{{StudentID: "s1", Tier: nutrition.TierPrimary}}, nil
}

func (m *programServiceMock) Detail(_ context.Context, programID string) (*dto.FeedingProgramDetail, error) {
	return &dto.FeedingProgramDetail{Program: dto.FeedingProgramResponse{FeedingProgram: models.FeedingProgram{ID: programID}}}, nil
}

type kpiServiceMock struct {
	gradeLevel string
	cacheHit   bool
}

func (m *kpiServiceMock) Summary(_ context.Context, gradeLevel string) (*dto.KPISummary, bool, error) {
	m.gradeLevel = gradeLevel
	return &dto.KPISummary{TotalStudents: 4, MeasuredStudents: 3}, m.cacheHit, nil
}

type dashboardServiceMock struct{}

func (dashboardServiceMock) Overview(context.Context) (*dto.DashboardOverview, bool, error) {
	return &dto.DashboardOverview{}, false, nil
}

type reportServiceMock struct {
	createReq   dto.ReportRequest
	createErr   error
	statusRole  models.UserRole
	download    *service.ReportDownload
	downloadErr error
}

func (m *reportServiceMock) CreateJob(_ context.Context, req dto.ReportRequest, _ string) (*dto.ReportJobResponse, error) {
	m.createReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued}, nil
}

func (m *reportServiceMock) GetStatus(_ context.Context, id string, _ string, role models.UserRole) (*dto.ReportStatusResponse, error) {
	m.statusRole = role
	return &dto.ReportStatusResponse{ID: id, Status: models.ReportStatusFinished, Progress: 100}, nil
}

func (m *reportServiceMock) ListMine(context.Context, string, int) ([]dto.ReportStatusResponse, error) {
	return []dto.ReportStatusResponse{}, nil
}

func (m *reportServiceMock) ResolveDownload(context.Context, string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}
