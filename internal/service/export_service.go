package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-health-api/internal/dto"
	"github.com/noah-isme/school-health-api/internal/models"
	"github.com/noah-isme/school-health-api/internal/nutrition"
	"github.com/noah-isme/school-health-api/pkg/export"
	"github.com/noah-isme/school-health-api/pkg/storage"
)

type programDetailSource interface {
	Detail(ctx context.Context, programID string) (*dto.FeedingProgramDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds roster datasets and persists rendered files.
type ExportService struct {
	sources  SnapshotSources
	programs programDetailSource
	storage  fileStorage
	csv      datasetRenderer
	pdf      datasetRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(sources SnapshotSources, programs programDetailSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sources:  sources,
		programs: programs,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      SchoolClock(nil),
	}
}

// WithClock overrides the time source used for filenames and as-of dates.
func (s *ExportService) WithClock(clock Clock) *ExportService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Generate builds the dataset for job, renders it and stores a signed download.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("export stored", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Read returns the stored file content.
func (s *ExportService) Read(relPath string) ([]byte, error) {
	return s.storage.Read(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().Format("20060102_150405")
	scope := "all"
	switch {
	case job.Params.ProgramID != nil:
		scope = *job.Params.ProgramID
	case job.Params.GradeLevel != nil:
		scope = "grade-" + *job.Params.GradeLevel
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), sanitizeFilename(scope), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	switch job.Type {
	case models.ReportTypeNutritionalStatus:
		return s.buildNutritionalStatusDataset(ctx, job.Params)
	case models.ReportTypeFeedingProgram:
		return s.buildFeedingProgramDataset(ctx, job.Params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

var nutritionalStatusHeaders = []string{
	"Name", "Grade", "Sex", "Birthdate", "Age (Y)", "Age (M)",
	"Weight (kg)", "Height (cm)", "BMI", "BMI Status", "HFA Status",
}

// buildNutritionalStatusDataset lists every active student with the status
// current at the as-of date. Unmeasured students appear with N/A statuses.
func (s *ExportService) buildNutritionalStatusDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	asOf := s.now()
	grade := deref(params.GradeLevel)
	filter := models.MeasurementFilter{GradeLevel: grade}
	if params.AsOf != nil {
		asOf = params.AsOf.UTC()
		cutoff := nutrition.EndOfDay(asOf)
		filter.Before = &cutoff
	}
	snap, err := loadSnapshot(ctx, s.sources, filter, asOf)
	if err != nil {
		return export.Dataset{}, err
	}
	latest := snap.latest

	rows := make([]map[string]string, 0, len(snap.students))
	for _, st := range snap.students {
		row := map[string]string{
			"Name":      st.FullName,
			"Grade":     strings.TrimSpace(st.GradeLevel + " " + st.Section),
			"Sex":       st.Gender,
			"Birthdate": formatDate(st.BirthDate),
		}
		m, ok := latest[st.ID]
		if !ok {
			age := nutrition.AgeAt(st.BirthDate, st.Age, asOf)
			row["Age (Y)"] = strconv.Itoa(age.Years)
			row["Age (M)"] = strconv.Itoa(age.TotalMonths)
			row["BMI Status"] = string(nutrition.BMINotAvailable)
			row["HFA Status"] = string(nutrition.HFANotAvailable)
			rows = append(rows, row)
			continue
		}
		age, status := classifyMeasurement(st, m)
		row["Age (Y)"] = strconv.Itoa(age.Years)
		row["Age (M)"] = strconv.Itoa(age.TotalMonths)
		row["Weight (kg)"] = formatFloat(m.WeightKG)
		row["Height (cm)"] = formatFloat(m.HeightCM)
		row["BMI"] = formatFloat(status.BMI)
		row["BMI Status"] = string(status.BMIStatus)
		row["HFA Status"] = string(status.HFAStatus)
		rows = append(rows, row)
	}

	subtitle := "All grades"
	if grade != "" {
		subtitle = "Grade " + grade
	}
	return export.Dataset{
		Title:    "Nutritional Status Report",
		Subtitle: fmt.Sprintf("%s, as of %s", subtitle, asOf.Format("2006-01-02")),
		Headers:  nutritionalStatusHeaders,
		Rows:     rows,
		Weights:  map[string]float64{"Name": 3, "Birthdate": 1.5, "BMI Status": 1.8, "HFA Status": 1.8},
	}, nil
}

var feedingProgramHeaders = []string{
	"Name", "Grade", "Enrolled", "Baseline BMI", "Baseline Status",
	"Current BMI", "Current Status", "HFA Status", "Trend", "Days Fed",
}

func (s *ExportService) buildFeedingProgramDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	if params.ProgramID == nil || *params.ProgramID == "" {
		return export.Dataset{}, fmt.Errorf("feeding program report requires a program id")
	}
	detail, err := s.programs.Detail(ctx, *params.ProgramID)
	if err != nil {
		return export.Dataset{}, err
	}

	rows := make([]map[string]string, 0, len(detail.Beneficiaries))
	for _, b := range detail.Beneficiaries {
		row := map[string]string{
			"Name":            b.FullName,
			"Grade":           b.GradeLevel,
			"Enrolled":        b.EnrollmentDate.UTC().Format("2006-01-02"),
			"Baseline Status": string(nutrition.BMINotAvailable),
			"Current Status":  string(nutrition.BMINotAvailable),
			"HFA Status":      string(nutrition.HFANotAvailable),
			"Trend":           string(b.Trend),
			"Days Fed":        fmt.Sprintf("%d/%d", b.DaysPresent, b.DaysRecorded),
		}
		if b.Baseline != nil {
			row["Baseline BMI"] = formatFloat(b.Baseline.BMI)
			row["Baseline Status"] = string(b.Baseline.BMIStatus)
		}
		if b.Current != nil {
			row["Current BMI"] = formatFloat(b.Current.BMI)
			row["Current Status"] = string(b.Current.BMIStatus)
			row["HFA Status"] = string(b.Current.HFAStatus)
		}
		rows = append(rows, row)
	}

	t := detail.Trends
	subtitle := fmt.Sprintf("Status %s. Improve %d, No/Decline %d, Overdone %d, N/A %d",
		detail.Program.EffectiveStatus, t.Improve, t.NoDecline, t.Overdone, t.NotAvailable)
	return export.Dataset{
		Title:    "Feeding Program Report: " + detail.Program.Name,
		Subtitle: subtitle,
		Headers:  feedingProgramHeaders,
		Rows:     rows,
		Weights:  map[string]float64{"Name": 3, "Baseline Status": 1.8, "Current Status": 1.8, "HFA Status": 1.8},
	}, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
