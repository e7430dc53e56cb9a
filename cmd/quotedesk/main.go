package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"quotedesk/internal"
	"quotedesk/internal/catalog"
	"quotedesk/internal/config"
	"quotedesk/internal/connectors"
	"quotedesk/internal/layout"
	"quotedesk/internal/logger"
	"quotedesk/internal/pipeline"
	"quotedesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "classify" {
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "item description")
		_ = fs.Parse(os.Args[2:])
		required(*text, "--text")
		emit(pipeline.Classify(*text))
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cat, err := catalog.Load(cfg.BrandCatalogPath)
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc := pipeline.NewProcessingService(db, cfg, layout.NewClient(cfg), cat)

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	session := fs.String("session", "default", "session id")
	file := fs.String("file", "", "file id")

	switch cmd {
	case "ingest":
		input := fs.String("input", "", "pdf, image, xlsx or eml path")
		_ = fs.Parse(os.Args[2:])
		required(*input, "--input")
		rec, err := svc.Ingest(*session, *input)
		must(err)
		emit(rec)
	case "extract":
		_ = fs.Parse(os.Args[2:])
		required(*file, "--file")
		_, err := svc.Extract(ctx, *session, *file)
		must(err)
		tables, err := svc.Tables(*session, *file)
		must(err)
		emit(tables)
	case "tables":
		_ = fs.Parse(os.Args[2:])
		required(*file, "--file")
		tables, err := svc.Tables(*session, *file)
		must(err)
		emit(tables)
	case "cost":
		factorsArg := fs.String("factors", "", "costing factors as JSON or a JSON file path")
		tablesArg := fs.String("tables", "", "tables as JSON or a JSON file path; defaults to the stored tables")
		_ = fs.Parse(os.Args[2:])
		required(*file, "--file")
		factors := internal.DefaultCostingFactors()
		if *factorsArg != "" {
			must(readJSONArg(*factorsArg, &factors))
		}
		var supplied []internal.Table
		if *tablesArg != "" {
			must(readJSONArg(*tablesArg, &supplied))
		}
		costed, err := svc.Cost(*session, *file, factors, supplied)
		must(err)
		emit(costed)
	case "stitch":
		_ = fs.Parse(os.Args[2:])
		required(*file, "--file")
		st, err := svc.Stitch(*session, *file)
		must(err)
		emit(st)
	case "items":
		_ = fs.Parse(os.Args[2:])
		required(*file, "--file")
		items, err := svc.Items(*session, *file)
		must(err)
		emit(items)
	case "alternatives":
		tier := fs.String("tier", "mid_range", "budgetary|mid_range|high_end")
		limit := fs.Int("limit", 0, "alternatives per item (0 uses ALTERNATIVES_LIMIT)")
		_ = fs.Parse(os.Args[2:])
		required(*file, "--file")
		res, err := svc.Alternatives(*session, *file, *tier, *limit)
		must(err)
		emit(res)
	case "export":
		kind := fs.String("kind", string(pipeline.ExportExtracted), "extracted|offer|stitched|alternatives")
		_ = fs.Parse(os.Args[2:])
		required(*file, "--file")
		path, err := svc.Export(*session, *file, pipeline.ExportKind(*kind))
		must(err)
		emit(map[string]string{"path": path})
	case "files":
		_ = fs.Parse(os.Args[2:])
		files, err := svc.Files(*session)
		must(err)
		emit(files)
	case "forget":
		_ = fs.Parse(os.Args[2:])
		must(svc.Forget(*session, *file))
		emit(map[string]string{"forgotten": *session + "/" + *file})
	case "run":
		input := fs.String("input", "", "pdf, image, xlsx or eml path")
		factorsArg := fs.String("factors", "", "costing factors as JSON or a JSON file path")
		tier := fs.String("tier", "mid_range", "budgetary|mid_range|high_end")
		_ = fs.Parse(os.Args[2:])
		required(*input, "--input")
		factors := internal.DefaultCostingFactors()
		if *factorsArg != "" {
			must(readJSONArg(*factorsArg, &factors))
		}
		out, err := runAll(ctx, svc, *session, *input, factors, *tier)
		must(err)
		emit(out)
	case "mail:fetch":
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailListenerFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := connectors.New(ctx, cfg, *provider)
		must(err)
		res, err := connectors.NewFetchService(db, cfg.RawMailDir, conn).FetchAndStore(ctx, *label, *max)
		must(err)
		emit(res)
	default:
		usage()
		os.Exit(1)
	}
}

type runResult struct {
	File    internal.FileRecord `json:"file"`
	Tables  int                 `json:"tables"`
	Items   int                 `json:"items"`
	Exports map[string]string   `json:"exports"`
	Skipped map[string]string   `json:"skipped,omitempty"`
}

// runAll drives one file through every step. Steps whose input is missing,
// such as stitching a spreadsheet, are reported and skipped.
func runAll(ctx context.Context, svc *pipeline.ProcessingService, session, input string, factors internal.CostingFactors, tier string) (runResult, error) {
	rec, err := svc.Ingest(session, input)
	if err != nil {
		return runResult{}, err
	}
	out := runResult{File: rec, Exports: map[string]string{}, Skipped: map[string]string{}}

	if rec.Kind != internal.KindXLSX {
		if _, err := svc.Extract(ctx, session, rec.FileID); err != nil {
			return out, err
		}
	}
	tables, err := svc.Tables(session, rec.FileID)
	if err != nil {
		return out, err
	}
	out.Tables = len(tables)

	if _, err := svc.Cost(session, rec.FileID, factors, nil); err != nil {
		return out, err
	}
	if rec.Kind != internal.KindXLSX {
		if _, err := svc.Stitch(session, rec.FileID); err != nil {
			out.Skipped["stitch"] = err.Error()
		}
	}
	items, err := svc.Items(session, rec.FileID)
	if err != nil {
		return out, err
	}
	out.Items = len(items)
	if _, err := svc.Alternatives(session, rec.FileID, tier, 0); err != nil {
		return out, err
	}

	for _, kind := range []pipeline.ExportKind{pipeline.ExportExtracted, pipeline.ExportOffer, pipeline.ExportStitched, pipeline.ExportAlternatives} {
		path, err := svc.Export(session, rec.FileID, kind)
		if err != nil {
			out.Skipped[string(kind)] = err.Error()
			continue
		}
		out.Exports[string(kind)] = path
	}
	return out, nil
}

// readJSONArg decodes value as inline JSON when it looks like JSON and as a
// file path otherwise.
func readJSONArg(value string, dst any) error {
	data := []byte(value)
	if trimmed := strings.TrimSpace(value); !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		blob, err := os.ReadFile(value)
		if err != nil {
			return err
		}
		data = blob
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", value, err)
	}
	return nil
}

func emit(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func required(value, flagName string) {
	if strings.TrimSpace(value) == "" {
		must(fmt.Errorf("%s is required", flagName))
	}
}

func usage() {
	fmt.Println("usage: quotedesk <command> [--session=default]")
	fmt.Println("commands:")
	fmt.Println("  ingest --input=quote.pdf|scan.png|boq.xlsx|mail.eml")
	fmt.Println("  extract --file=<id>")
	fmt.Println("  tables --file=<id>")
	fmt.Println("  cost --file=<id> [--factors='{\"net_margin\":10}'] [--tables=tables.json]")
	fmt.Println("  stitch --file=<id>")
	fmt.Println("  items --file=<id>")
	fmt.Println("  classify --text='ergonomic task chair'")
	fmt.Println("  alternatives --file=<id> [--tier=budgetary|mid_range|high_end] [--limit=5]")
	fmt.Println("  export --file=<id> --kind=extracted|offer|stitched|alternatives")
	fmt.Println("  files")
	fmt.Println("  forget [--file=<id>]")
	fmt.Println("  run --input=... [--factors=...] [--tier=mid_range]")
	fmt.Println("  mail:fetch [--provider=gmail|imap] [--label=INBOX] [--max=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
