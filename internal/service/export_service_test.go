package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/pkg/storage"
)

type backupExporterStub struct {
	backup *models.Backup
}

func (b backupExporterStub) Export(context.Context) (*models.Backup, error) {
	return b.backup, nil
}

type paymentRangeStub struct {
	payments []models.Payment
	from, to time.Time
}

func (p *paymentRangeStub) ListRange(_ context.Context, from, to time.Time) ([]models.Payment, error) {
	p.from, p.to = from, to
	return p.payments, nil
}

type expenseRangeStub struct {
	expenses []models.Expense
}

func (e expenseRangeStub) ListRange(context.Context, time.Time, time.Time) ([]models.Expense, error) {
	return e.expenses, nil
}

type problemsByCategoryStub map[string][]models.Problem

func (p problemsByCategoryStub) ListByCategory(_ context.Context, categoryID string) ([]models.Problem, error) {
	return p[categoryID], nil
}

type variantFinderStub struct {
	variant *models.GeneratedVariant
}

func (v variantFinderStub) FindByID(context.Context, string) (*models.GeneratedVariant, error) {
	if v.variant == nil {
		return nil, sql.ErrNoRows
	}
	return v.variant, nil
}

func newExportServiceForTest(t *testing.T, sources ExportSources) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewExportService(sources, store, zap.NewNop())
}

func readExport(t *testing.T, svc *ExportService, relPath string) string {
	t.Helper()
	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	return string(data)
}

func TestExportServiceBackupJSON(t *testing.T) {
	backup := &models.Backup{Version: models.BackupVersion, Students: []models.Student{{ID: "s-1", Name: "Alice"}}}
	svc := newExportServiceForTest(t, ExportSources{Backup: backupExporterStub{backup: backup}})

	job := &models.ExportJob{ID: "job-1", Type: models.ExportTypeBackup, Format: models.ExportFormatJSON}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "backup/job-1.json", result.RelativePath)

	var decoded models.Backup
	require.NoError(t, json.Unmarshal([]byte(readExport(t, svc, result.RelativePath)), &decoded))
	require.Len(t, decoded.Students, 1)
	assert.Equal(t, "Alice", decoded.Students[0].Name)
}

func TestExportServiceFinanceCSV(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	note := "cash in hand"
	payments := &paymentRangeStub{payments: []models.Payment{{ID: "p-1", LessonID: "l-1", Amount: 1500, Date: day, Method: models.PaymentMethodCash, Notes: &note}}}
	expenses := expenseRangeStub{expenses: []models.Expense{{ID: "e-1", Amount: 300, Date: day, Category: models.ExpenseCategorySoftware, Description: "licence"}}}
	svc := newExportServiceForTest(t, ExportSources{Payments: payments, Expenses: expenses})

	job := &models.ExportJob{
		ID:     "job-2",
		Type:   models.ExportTypeFinance,
		Format: models.ExportFormatCSV,
		Params: models.ExportParams{FromMonth: "2024-02", ToMonth: "2024-03"},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), payments.from)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), payments.to)

	content := readExport(t, svc, result.RelativePath)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,kind,category,description,amount", lines[0])
	assert.Contains(t, lines[1], "payment,cash,lesson l-1 (cash in hand),1500")
	assert.Contains(t, lines[2], "expense,software,licence,-300")
}

func TestExportServiceFinanceRejectsBadMonth(t *testing.T) {
	svc := newExportServiceForTest(t, ExportSources{Payments: &paymentRangeStub{}, Expenses: expenseRangeStub{}})
	job := &models.ExportJob{ID: "job-3", Type: models.ExportTypeFinance, Format: models.ExportFormatPDF, Params: models.ExportParams{FromMonth: "03-2024", ToMonth: "2024-03"}}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportServiceMaterialsText(t *testing.T) {
	root := &models.MaterialCategory{ID: "root", Name: "Algebra", Subject: models.SubjectMath}
	child := models.MaterialCategory{ID: "child", Name: "Equations", Subject: models.SubjectMath, ParentID: strRef("root")}
	solution := "x = 4 - 2"
	categories := &mockCategoryRepo{
		categories: map[string]models.MaterialCategory{root.ID: *root, child.ID: child},
		ordered:    []models.MaterialCategory{*root, child},
	}
	problems := problemsByCategoryStub{
		"child": {{ID: "p-1", CategoryID: "child", Question: "x + 2 = 4", Answer: "2", Solution: &solution, Difficulty: models.DifficultyEasy, Points: 1}},
	}
	svc := newExportServiceForTest(t, ExportSources{Categories: categories, Problems: problems})

	job := &models.ExportJob{
		ID:     "job-4",
		Type:   models.ExportTypeMaterials,
		Format: models.ExportFormatTXT,
		Params: models.ExportParams{CategoryID: "root", IncludeAnswers: true},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "materials/job-4.txt", result.RelativePath)

	content := readExport(t, svc, result.RelativePath)
	assert.Contains(t, content, "Algebra")
	assert.Contains(t, content, "Equations")
	assert.Contains(t, content, "1. [easy, 1 point] x + 2 = 4")
	assert.Contains(t, content, "Answer: 2")
	assert.NotContains(t, content, "Solution:")
}

func TestExportServiceMaterialsIncludesNestedCategories(t *testing.T) {
	root := models.MaterialCategory{ID: "root", Name: "Mechanics", Subject: models.SubjectPhysics}
	kinematics := models.MaterialCategory{ID: "kin", Name: "Kinematics", Subject: models.SubjectPhysics, ParentID: strRef("root")}
	projectiles := models.MaterialCategory{ID: "proj", Name: "Projectiles", Subject: models.SubjectPhysics, ParentID: strRef("kin")}
	dynamics := models.MaterialCategory{ID: "dyn", Name: "Dynamics", Subject: models.SubjectPhysics, ParentID: strRef("root")}
	categories := &mockCategoryRepo{
		categories: map[string]models.MaterialCategory{root.ID: root, kinematics.ID: kinematics, projectiles.ID: projectiles, dynamics.ID: dynamics},
		ordered:    []models.MaterialCategory{root, kinematics, dynamics, projectiles},
	}
	problems := problemsByCategoryStub{
		"proj": {{ID: "p-1", CategoryID: "proj", Question: "Find the range", Difficulty: models.DifficultyHard, Points: 3}},
		"dyn":  {{ID: "p-2", CategoryID: "dyn", Question: "Find the force", Difficulty: models.DifficultyMedium, Points: 2}},
	}
	svc := newExportServiceForTest(t, ExportSources{Categories: categories, Problems: problems})

	job := &models.ExportJob{
		ID:     "job-5",
		Type:   models.ExportTypeMaterials,
		Format: models.ExportFormatTXT,
		Params: models.ExportParams{CategoryID: "root"},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	content := readExport(t, svc, result.RelativePath)
	assert.Contains(t, content, "Projectiles")
	assert.Contains(t, content, "Find the range")
	assert.Less(t, strings.Index(content, "Projectiles"), strings.Index(content, "Dynamics"))
}

func TestExportServiceVariantPDF(t *testing.T) {
	variant := &models.GeneratedVariant{
		ID:          "v-1",
		Name:        "Quiz 1",
		Subject:     models.SubjectPhysics,
		TotalPoints: 3,
		Problems:    models.VariantProblems{{ID: "p-1", Question: "F = ?", Answer: "ma", Difficulty: models.DifficultyHard, Points: 3}},
	}
	svc := newExportServiceForTest(t, ExportSources{Variants: variantFinderStub{variant: variant}})

	job := &models.ExportJob{ID: "job-5", Type: models.ExportTypeVariant, Format: models.ExportFormatPDF, Params: models.ExportParams{VariantID: "v-1"}}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(readExport(t, svc, result.RelativePath), "%PDF"))
}

func TestExportServiceVariantMissing(t *testing.T) {
	svc := newExportServiceForTest(t, ExportSources{Variants: variantFinderStub{}})
	job := &models.ExportJob{ID: "job-6", Type: models.ExportTypeVariant, Format: models.ExportFormatTXT, Params: models.ExportParams{VariantID: "gone"}}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
