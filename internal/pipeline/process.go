package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"quotedesk/internal"
	"quotedesk/internal/catalog"
	"quotedesk/internal/config"
	"quotedesk/internal/intake"
	"quotedesk/internal/logger"
	"quotedesk/internal/storage"
)

// LayoutParser is the layout-parsing service as seen by the pipeline.
type LayoutParser interface {
	Extract(ctx context.Context, path string, kind internal.FileKind) (internal.ExtractionResult, error)
	DownloadImages(ctx context.Context, result internal.ExtractionResult, dir string) (internal.ExtractionResult, error)
}

type ExportKind string

const (
	ExportExtracted    ExportKind = "extracted"
	ExportOffer        ExportKind = "offer"
	ExportStitched     ExportKind = "stitched"
	ExportAlternatives ExportKind = "alternatives"
)

// StitchedHTMLName is the stitched table's HTML rendering in a file's output directory.
const StitchedHTMLName = "stitched_table.html"

// downstreamStages are derived from the extraction and go stale when it is replaced.
var downstreamStages = []internal.Stage{internal.StageCosted, internal.StageStitched, internal.StageItems, internal.StageAlternatives}

// AlternativesResult is the stored outcome of the alternatives step.
type AlternativesResult struct {
	Tier   internal.Tier               `json:"tier"`
	Groups []internal.ItemAlternatives `json:"groups"`
}

type ProcessingService struct {
	db      *storage.DB
	cfg     config.Config
	layout  LayoutParser
	catalog *catalog.Catalog
	log     *slog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, layout LayoutParser, cat *catalog.Catalog) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg, layout: layout, catalog: cat, log: logger.Get("pipeline")}
}

// Ingest validates the file at path and stores it under sessionID.
// Spreadsheets get their tables stored right away.
func (s *ProcessingService) Ingest(sessionID, path string) (internal.FileRecord, error) {
	start := time.Now()
	u, err := intake.ReadFile(path, s.cfg.MaxUploadBytes())
	if err != nil {
		return internal.FileRecord{}, err
	}
	rec, err := intake.Store(s.cfg.UploadDir, sessionID, u)
	if err != nil {
		return internal.FileRecord{}, err
	}
	if u.Kind == internal.KindXLSX {
		if err := s.db.PutStage(sessionID, rec.FileID, internal.StageTables, u.Tables); err != nil {
			return internal.FileRecord{}, err
		}
		rec.Status = internal.StatusExtracted
	}
	rec, err = s.db.UpsertFile(rec)
	if err != nil {
		return internal.FileRecord{}, err
	}
	s.record("ingest", rec.SessionID, rec.FileID, start, map[string]int{"pages": rec.PageCount, "tables": len(u.Tables)})
	s.log.Info("file ingested", "session", sessionID, "file", rec.FileID, "name", rec.OriginalName, "kind", rec.Kind)
	return rec, nil
}

// Extract runs layout parsing, downloads referenced images, writes one
// markdown file per page and stores the result with its tables.
func (s *ProcessingService) Extract(ctx context.Context, sessionID, fileID string) (internal.ExtractionResult, error) {
	start := time.Now()
	rec, err := s.db.MustFile(sessionID, fileID)
	if err != nil {
		return internal.ExtractionResult{}, err
	}
	if rec.Kind == internal.KindXLSX {
		return internal.ExtractionResult{}, fmt.Errorf("%w: spreadsheets are read directly, not layout parsed", internal.ErrUnsupportedFormat)
	}

	result, err := s.layout.Extract(ctx, rec.StoredPath, rec.Kind)
	if err != nil {
		return internal.ExtractionResult{}, err
	}

	outDir := s.outputDir(sessionID, fileID)
	result, err = s.layout.DownloadImages(ctx, result, outDir)
	if err != nil {
		return internal.ExtractionResult{}, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return internal.ExtractionResult{}, err
	}
	for i, page := range result.LayoutParsingResults {
		name := filepath.Join(outDir, fmt.Sprintf("doc_%d.md", i))
		if err := os.WriteFile(name, []byte(page.Markdown.Text), 0o644); err != nil {
			return internal.ExtractionResult{}, err
		}
	}

	tables, err := TablesFromExtraction(result)
	if err != nil && !errors.Is(err, internal.ErrNoTables) {
		return internal.ExtractionResult{}, err
	}
	if tables == nil {
		tables = []internal.Table{}
	}

	if err := s.db.DeleteStages(sessionID, fileID, downstreamStages...); err != nil {
		return internal.ExtractionResult{}, err
	}
	if err := s.db.PutStage(sessionID, fileID, internal.StageExtraction, result); err != nil {
		return internal.ExtractionResult{}, err
	}
	if err := s.db.PutStage(sessionID, fileID, internal.StageTables, tables); err != nil {
		return internal.ExtractionResult{}, err
	}
	if err := s.db.UpdateFileStatus(sessionID, fileID, internal.StatusExtracted); err != nil {
		return internal.ExtractionResult{}, err
	}
	s.record("extract", sessionID, fileID, start, map[string]int{"pages": len(result.LayoutParsingResults), "tables": len(tables)})
	return result, nil
}

func (s *ProcessingService) Tables(sessionID, fileID string) ([]internal.Table, error) {
	var tables []internal.Table
	if err := s.loadStage(sessionID, fileID, internal.StageTables, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// Cost applies factors to supplied when given, else to the stored tables.
func (s *ProcessingService) Cost(sessionID, fileID string, factors internal.CostingFactors, supplied []internal.Table) ([]internal.CostedTable, error) {
	start := time.Now()
	if _, err := s.db.MustFile(sessionID, fileID); err != nil {
		return nil, err
	}
	tables := supplied
	if len(tables) == 0 {
		var err error
		if tables, err = s.Tables(sessionID, fileID); err != nil {
			return nil, err
		}
	}

	costed := ApplyCostingAll(tables, factors)
	if err := s.db.PutStage(sessionID, fileID, internal.StageCosted, costed); err != nil {
		return nil, err
	}
	if err := s.db.UpdateFileStatus(sessionID, fileID, internal.StatusCosted); err != nil {
		return nil, err
	}
	s.record("cost", sessionID, fileID, start, map[string]int{"tables": len(costed), "supplied": len(supplied)})
	return costed, nil
}

func (s *ProcessingService) Stitch(sessionID, fileID string) (internal.StitchedTable, error) {
	start := time.Now()
	var result internal.ExtractionResult
	if err := s.loadStage(sessionID, fileID, internal.StageExtraction, &result); err != nil {
		return internal.StitchedTable{}, err
	}

	stitched, err := StitchTables(SourceTablesFromExtraction(result))
	if err != nil {
		return internal.StitchedTable{}, err
	}
	outDir := s.outputDir(sessionID, fileID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return internal.StitchedTable{}, err
	}
	if err := os.WriteFile(filepath.Join(outDir, StitchedHTMLName), []byte(stitched.HTML()), 0o644); err != nil {
		return internal.StitchedTable{}, err
	}
	if err := s.db.PutStage(sessionID, fileID, internal.StageStitched, stitched); err != nil {
		return internal.StitchedTable{}, err
	}
	if err := s.db.UpdateFileStatus(sessionID, fileID, internal.StatusStitched); err != nil {
		return internal.StitchedTable{}, err
	}
	s.record("stitch", sessionID, fileID, start, map[string]int{"rows": stitched.RowCount, "pages": stitched.PageCount})
	return stitched, nil
}

// Items derives classified line items from the stitched table when one
// exists, else from the per-page tables.
func (s *ProcessingService) Items(sessionID, fileID string) ([]internal.Item, error) {
	start := time.Now()
	var tables []internal.Table
	var stitched internal.StitchedTable
	found, err := s.db.GetStage(sessionID, fileID, internal.StageStitched, &stitched)
	if err != nil {
		return nil, err
	}
	if found {
		tables = []internal.Table{stitched.Table()}
	} else if tables, err = s.Tables(sessionID, fileID); err != nil {
		return nil, err
	}

	items := ItemsFromTables(tables, s.brands())
	if items == nil {
		items = []internal.Item{}
	}
	if err := s.db.PutStage(sessionID, fileID, internal.StageItems, items); err != nil {
		return nil, err
	}
	s.record("items", sessionID, fileID, start, map[string]int{"tables": len(tables), "items": len(items)})
	return items, nil
}

// Alternatives ranks catalogue alternatives in tier for every stored item.
func (s *ProcessingService) Alternatives(sessionID, fileID, tier string, limit int) (AlternativesResult, error) {
	start := time.Now()
	t, err := catalog.NormalizeTier(tier)
	if err != nil {
		return AlternativesResult{}, err
	}
	var items []internal.Item
	if err := s.loadStage(sessionID, fileID, internal.StageItems, &items); err != nil {
		return AlternativesResult{}, err
	}
	if limit <= 0 {
		limit = s.cfg.AlternativesLimit
	}

	out := AlternativesResult{Tier: t, Groups: make([]internal.ItemAlternatives, 0, len(items))}
	total := 0
	for _, item := range items {
		alts, err := s.catalog.Alternatives(item, t, limit)
		if err != nil {
			return AlternativesResult{}, err
		}
		total += len(alts)
		out.Groups = append(out.Groups, internal.ItemAlternatives{Item: item, Alternatives: alts})
	}
	if err := s.db.PutStage(sessionID, fileID, internal.StageAlternatives, out); err != nil {
		return AlternativesResult{}, err
	}
	s.record("alternatives", sessionID, fileID, start, map[string]int{"items": len(items), "alternatives": total})
	return out, nil
}

// Export writes the requested workbook into the file's output directory and
// returns its path.
func (s *ProcessingService) Export(sessionID, fileID string, kind ExportKind) (string, error) {
	start := time.Now()
	if _, err := s.db.MustFile(sessionID, fileID); err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(s.outputDir(sessionID, fileID), fmt.Sprintf("%s_%s_%s.xlsx", kind, fileID, stamp))

	switch kind {
	case ExportExtracted:
		tables, err := s.Tables(sessionID, fileID)
		if err != nil {
			return "", err
		}
		err = ExportExtractedXLSX(tables, path)
		if err != nil {
			return "", err
		}
	case ExportOffer:
		var costed []internal.CostedTable
		if err := s.loadStage(sessionID, fileID, internal.StageCosted, &costed); err != nil {
			return "", err
		}
		factors := internal.DefaultCostingFactors()
		if len(costed) > 0 {
			factors = costed[0].Factors
		}
		if err := ExportOfferXLSX(costed, factors, s.cfg.VATPercent, path); err != nil {
			return "", err
		}
	case ExportStitched:
		var stitched internal.StitchedTable
		if err := s.loadStage(sessionID, fileID, internal.StageStitched, &stitched); err != nil {
			return "", err
		}
		if err := ExportStitchedXLSX(stitched, path); err != nil {
			return "", err
		}
	case ExportAlternatives:
		var alts AlternativesResult
		if err := s.loadStage(sessionID, fileID, internal.StageAlternatives, &alts); err != nil {
			return "", err
		}
		if err := ExportAlternativesXLSX(alts.Groups, alts.Tier, path); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown export kind: %s", kind)
	}

	s.record("export_"+string(kind), sessionID, fileID, start, map[string]int{})
	s.log.Info("export written", "session", sessionID, "file", fileID, "kind", kind, "path", path)
	return path, nil
}

func (s *ProcessingService) Files(sessionID string) ([]internal.FileRecord, error) {
	files, err := s.db.ListFiles(sessionID)
	if files == nil {
		files = []internal.FileRecord{}
	}
	return files, err
}

// Forget removes a file, its stages and everything written for it. An empty
// fileID forgets the whole session.
func (s *ProcessingService) Forget(sessionID, fileID string) error {
	if fileID == "" {
		files, err := s.db.ListFiles(sessionID)
		if err != nil {
			return err
		}
		var errs []error
		for _, f := range files {
			errs = append(errs, removeIfExists(f.StoredPath, os.Remove))
		}
		errs = append(errs,
			removeIfExists(filepath.Join(s.cfg.OutputDir, sessionID), os.RemoveAll),
			removeIfExists(filepath.Join(s.cfg.UploadDir, sessionID), os.RemoveAll),
		)
		if err := errors.Join(errs...); err != nil {
			return err
		}
		return s.db.DeleteSession(sessionID)
	}

	rec, err := s.db.MustFile(sessionID, fileID)
	if err != nil {
		return err
	}
	if err := errors.Join(
		removeIfExists(rec.StoredPath, os.Remove),
		removeIfExists(s.outputDir(sessionID, fileID), os.RemoveAll),
	); err != nil {
		return err
	}
	return s.db.DeleteFile(sessionID, fileID)
}

func removeIfExists(path string, remove func(string) error) error {
	if err := remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("forget %s: %w", path, err)
	}
	return nil
}

func (s *ProcessingService) outputDir(sessionID, fileID string) string {
	return filepath.Join(s.cfg.OutputDir, sessionID, fileID)
}

func (s *ProcessingService) loadStage(sessionID, fileID string, stage internal.Stage, dst any) error {
	found, err := s.db.GetStage(sessionID, fileID, stage, dst)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s for session=%s file=%s", internal.ErrStageMissing, stage, sessionID, fileID)
	}
	return nil
}

func (s *ProcessingService) brands() []string {
	brands := slices.Clone(DefaultBrands)
	if s.catalog != nil {
		for _, b := range s.catalog.Brands() {
			if !slices.Contains(brands, b) {
				brands = append(brands, b)
			}
		}
	}
	return brands
}

func (s *ProcessingService) record(step, sessionID, fileID string, start time.Time, counts map[string]int) {
	timings := map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
	if err := s.db.InsertRun(uuid.NewString(), sessionID, fileID, step, timings, counts); err != nil {
		s.log.Warn("run not recorded", "step", step, "err", err)
	}
}
