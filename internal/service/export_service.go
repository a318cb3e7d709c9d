package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	"github.com/noah-isme/tutor-cockpit-api/pkg/export"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type backupExporter interface {
	Export(ctx context.Context) (*models.Backup, error)
}

type paymentRangeLister interface {
	ListRange(ctx context.Context, from, to time.Time) ([]models.Payment, error)
}

type expenseRangeLister interface {
	ListRange(ctx context.Context, from, to time.Time) ([]models.Expense, error)
}

type exportCategoryReader interface {
	ListBySubject(ctx context.Context, subject models.Subject) ([]models.MaterialCategory, error)
	ListChildren(ctx context.Context, parentID string) ([]models.MaterialCategory, error)
	FindByID(ctx context.Context, id string) (*models.MaterialCategory, error)
}

type categoryProblemLister interface {
	ListByCategory(ctx context.Context, categoryID string) ([]models.Problem, error)
}

type variantFinder interface {
	FindByID(ctx context.Context, id string) (*models.GeneratedVariant, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportSources groups the readers export rendering pulls data from.
type ExportSources struct {
	Backup     backupExporter
	Payments   paymentRangeLister
	Expenses   expenseRangeLister
	Categories exportCategoryReader
	Problems   categoryProblemLister
	Variants   variantFinder
}

// ExportResult captures a stored export file.
type ExportResult struct {
	RelativePath string
	Size         int
}

// ExportService renders export jobs into files.
type ExportService struct {
	sources ExportSources
	storage fileStorage
	csv     tableRenderer
	pdf     documentRenderer
	txt     documentRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(sources ExportSources, storage fileStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		sources: sources,
		storage: storage,
		csv:     export.NewCSVRenderer(),
		pdf:     export.NewPDFRenderer(),
		txt:     export.NewTextRenderer(),
		logger:  logger,
	}
}

// Generate renders the job's content and stores it as <type>/<job id>.<format>.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("export job is nil")
	}

	var (
		payload []byte
		err     error
	)
	switch job.Type {
	case models.ExportTypeBackup:
		payload, err = s.renderBackup(ctx)
	case models.ExportTypeFinance:
		payload, err = s.renderFinance(ctx, job)
	case models.ExportTypeMaterials:
		payload, err = s.renderMaterials(ctx, job)
	case models.ExportTypeVariant:
		payload, err = s.renderVariant(ctx, job)
	default:
		err = fmt.Errorf("unsupported export type %s", job.Type)
	}
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s/%s.%s", job.Type, job.ID, job.Format)
	relPath, err := s.storage.Save(name, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("export rendered", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(payload)))
	return &ExportResult{RelativePath: relPath, Size: len(payload)}, nil
}

// Open returns the stored file for download.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes stored files older than ttl, including orphans without a job row.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) renderBackup(ctx context.Context) ([]byte, error) {
	backup, err := s.sources.Backup.Export(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

func (s *ExportService) renderFinance(ctx context.Context, job *models.ExportJob) ([]byte, error) {
	from, _, err := monthRange(job.Params.FromMonth)
	if err != nil {
		return nil, err
	}
	_, to, err := monthRange(job.Params.ToMonth)
	if err != nil {
		return nil, err
	}
	payments, err := s.sources.Payments.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := s.sources.Expenses.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	period := job.Params.FromMonth
	if job.Params.ToMonth != job.Params.FromMonth {
		period += " to " + job.Params.ToMonth
	}

	if job.Format == models.ExportFormatCSV {
		return s.csv.Render(financeLedger(payments, expenses))
	}

	var income, spent int64
	paymentRows := make([][]string, 0, len(payments))
	for _, p := range payments {
		income += p.Amount
		paymentRows = append(paymentRows, []string{p.Date.Format(dateLayout), string(p.Method), p.LessonID, formatAmount(p.Amount)})
	}
	expenseRows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		spent += e.Amount
		expenseRows = append(expenseRows, []string{e.Date.Format(dateLayout), string(e.Category), e.Description, formatAmount(e.Amount)})
	}
	doc := export.Document{
		Title:    "Finance report",
		Subtitle: period,
		Tables: []export.Table{
			{Caption: "Payments", Headers: []string{"Date", "Method", "Lesson", "Amount"}, Rows: paymentRows},
			{Caption: "Expenses", Headers: []string{"Date", "Category", "Description", "Amount"}, Rows: expenseRows},
		},
		Blocks: []export.Block{{
			Heading: "Summary",
			Lines: []string{
				"Income: " + formatAmount(income),
				"Expenses: " + formatAmount(spent),
				"Profit: " + formatAmount(income-spent),
			},
		}},
	}
	return s.pdf.Render(doc)
}

// financeLedger merges payments and expenses into one dated ledger table.
func financeLedger(payments []models.Payment, expenses []models.Expense) export.Table {
	table := export.Table{
		Headers: []string{"date", "kind", "category", "description", "amount"},
		Rows:    make([][]string, 0, len(payments)+len(expenses)),
	}
	for _, p := range payments {
		table.Rows = append(table.Rows, []string{p.Date.Format(dateLayout), "payment", string(p.Method), "lesson " + p.LessonID + noteSuffix(p.Notes), formatAmount(p.Amount)})
	}
	for _, e := range expenses {
		table.Rows = append(table.Rows, []string{e.Date.Format(dateLayout), "expense", string(e.Category), e.Description, formatAmount(-e.Amount)})
	}
	return table
}

func (s *ExportService) renderMaterials(ctx context.Context, job *models.ExportJob) ([]byte, error) {
	categories, title, err := s.materialCategories(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	doc := export.Document{Title: title}
	for _, category := range categories {
		problems, err := s.sources.Problems.ListByCategory(ctx, category.ID)
		if err != nil {
			return nil, err
		}
		if len(problems) == 0 {
			continue
		}
		block := export.Block{Heading: category.Name}
		for i, problem := range problems {
			block.Lines = append(block.Lines, problemLines(i+1, problem, job.Params.IncludeAnswers, job.Params.IncludeSolutions)...)
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	doc.Subtitle = fmt.Sprintf("%d sections", len(doc.Blocks))
	return s.renderDocument(job.Format, doc)
}

func (s *ExportService) materialCategories(ctx context.Context, params models.ExportParams) ([]models.MaterialCategory, string, error) {
	if params.CategoryID != "" {
		root, err := s.sources.Categories.FindByID(ctx, params.CategoryID)
		if err != nil {
			return nil, "", err
		}
		categories, err := s.subtree(ctx, *root)
		if err != nil {
			return nil, "", err
		}
		return categories, root.Name, nil
	}
	categories, err := s.sources.Categories.ListBySubject(ctx, params.Subject)
	if err != nil {
		return nil, "", err
	}
	return categories, subjectTitle(params.Subject) + " problems", nil
}

// subtree lists root and all of its descendants depth first, each parent
// ahead of its children.
func (s *ExportService) subtree(ctx context.Context, root models.MaterialCategory) ([]models.MaterialCategory, error) {
	out := []models.MaterialCategory{}
	seen := map[string]bool{}
	stack := []models.MaterialCategory{root}
	for len(stack) > 0 {
		category := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[category.ID] {
			continue
		}
		seen[category.ID] = true
		out = append(out, category)

		children, err := s.sources.Categories.ListChildren(ctx, category.ID)
		if err != nil {
			return nil, err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out, nil
}

func (s *ExportService) renderVariant(ctx context.Context, job *models.ExportJob) ([]byte, error) {
	variant, err := s.sources.Variants.FindByID(ctx, job.Params.VariantID)
	if err != nil {
		return nil, err
	}
	doc := export.Document{
		Title:    variant.Name,
		Subtitle: fmt.Sprintf("%s, %d problems, %d points", subjectTitle(variant.Subject), len(variant.Problems), variant.TotalPoints),
	}
	for i, problem := range variant.Problems {
		doc.Blocks = append(doc.Blocks, export.Block{
			Lines: problemLines(i+1, problem, job.Params.IncludeAnswers, job.Params.IncludeSolutions),
		})
	}
	return s.renderDocument(job.Format, doc)
}

func (s *ExportService) renderDocument(format models.ExportFormat, doc export.Document) ([]byte, error) {
	switch format {
	case models.ExportFormatPDF:
		return s.pdf.Render(doc)
	case models.ExportFormatTXT:
		return s.txt.Render(doc)
	default:
		return nil, fmt.Errorf("unsupported document format %s", format)
	}
}

func problemLines(n int, problem models.Problem, answers, solutions bool) []string {
	points := problem.EffectivePoints()
	unit := "points"
	if points == 1 {
		unit = "point"
	}
	lines := []string{fmt.Sprintf("%d. [%s, %d %s] %s", n, problem.Difficulty, points, unit, problem.Question)}
	if answers {
		lines = append(lines, "   Answer: "+problem.Answer)
	}
	if solutions && problem.Solution != nil && *problem.Solution != "" {
		lines = append(lines, "   Solution: "+*problem.Solution)
	}
	return lines
}

func subjectTitle(subject models.Subject) string {
	switch subject {
	case models.SubjectMath:
		return "Math"
	case models.SubjectPhysics:
		return "Physics"
	default:
		return strings.ToUpper(string(subject))
	}
}

func formatAmount(amount int64) string {
	return strconv.FormatInt(amount, 10)
}

func noteSuffix(notes *string) string {
	if notes == nil || *notes == "" {
		return ""
	}
	return " (" + *notes + ")"
}
