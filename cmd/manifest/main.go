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

	"go.uber.org/zap"

	"manifest/internal"
	"manifest/internal/config"
	"manifest/internal/connectors"
	"manifest/internal/listener"
	"manifest/internal/logging"
	"manifest/internal/pipeline"
	"manifest/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	must(err)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	proc, closeAI, err := pipeline.NewProcessorFromConfig(ctx, cfg, logger)
	must(err)
	defer func() { _ = closeAI() }()

	cmd := os.Args[1]
	switch cmd {
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "input file path, or raw text/html for --type=text|html")
		inType := fs.String("type", "auto", "auto|xlsx|csv|tsv|txt|pdf|html|text|eml|png|jpg|webp")
		docType := fs.String("docType", string(internal.DocShipmentManifest), "shipment_manifest|delivery_order|load_plan")
		sheet := fs.Int("sheet", -1, "only parse this 0-based sheet index")
		noHeader := fs.Bool("noHeader", false, "input has no header row")
		output := fs.String("output", "", "output xlsx path")
		asJSON := fs.Bool("json", false, "print the document summary as JSON")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || (*output == "" && !*asJSON) {
			must(fmt.Errorf("--input and --output (or --json) are required"))
		}

		opts := pipeline.ParseOptionsFromConfig(cfg, internal.DocumentType(*docType))
		opts.HasHeaderRow = !*noHeader
		if *sheet >= 0 {
			opts.SheetIndex = sheet
		}
		records, err := proc.ProcessInput(ctx, *inType, *input, opts)
		must(err)
		summary := pipeline.Summarize(records)

		if *output != "" {
			must(pipeline.ExportShipmentsToXLSX(records, *output))
		}
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			must(enc.Encode(summary))
			return
		}
		fmt.Printf("run done shipments=%d review=%v confidence=%.2f output=%s\n", len(records), summary.NeedsReview, summary.Confidence, *output)
		if summary.Message != "" {
			fmt.Println(summary.Message)
		}
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := listener.NewConnector(ctx, cfg, strings.ToLower(strings.TrimSpace(*provider)))
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "gmail", "gmail|imap")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])
		ingestor := pipeline.NewIngestor(db, proc, pipeline.ParseOptionsFromConfig(cfg, ""), logger)
		if strings.TrimSpace(*messageID) != "" {
			res, err := ingestor.ProcessByProviderMessageID(ctx, *provider, *messageID)
			must(err)
			fmt.Printf("processed email id=%d document=%s shipments=%d review=%d skipped=%v\n", res.EmailID, res.DocumentID, res.Shipments, res.Review, res.Skipped)
			return
		}
		processedEmails, shipments, err := ingestor.ProcessPending(ctx, *batch, *provider)
		must(err)
		fmt.Printf("processed pending emails=%d shipments=%d\n", processedEmails, shipments)
	case "mail:listen":
		ingestor := pipeline.NewIngestor(db, proc, pipeline.ParseOptionsFromConfig(cfg, ""), logger)
		s := listener.NewService(db, cfg, ingestor, logger)
		must(s.Run(ctx))
	case "inbox:watch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", cfg.InboxDir, "directory to watch")
		backfill := fs.Bool("backfill", true, "ingest files already present")
		_ = fs.Parse(os.Args[2:])
		must(os.MkdirAll(*dir, 0o755))
		ingestor := pipeline.NewIngestor(db, proc, pipeline.ParseOptionsFromConfig(cfg, ""), logger)
		w := listener.NewDirWatcher(*dir, cfg.OutputDir, cfg.MailListenerAutoExport, ingestor, logger)
		must(w.Start(ctx))
		if *backfill {
			must(w.Backfill(ctx))
		}
		<-w.Done()
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		documentID := fs.String("documentId", "", "stored document id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*documentID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--documentId and --out are required"))
		}
		ingestor := pipeline.NewIngestor(db, proc, pipeline.ParseOptionsFromConfig(cfg, ""), logger)
		n, err := ingestor.ExportDocument(*documentID, *out)
		must(err)
		if n == 0 {
			must(fmt.Errorf("no shipments for documentId=%s", *documentID))
		}
		fmt.Printf("exported %d shipments to %s\n", n, *out)
	case "documents":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max documents")
		_ = fs.Parse(os.Args[2:])
		docs, err := db.ListDocuments(*limit)
		must(err)
		for _, d := range docs {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n", d.ID, d.CreatedAt, d.Source, d.Status, d.Name)
		}
		review, err := db.CountShipmentsForReview()
		must(err)
		logger.Debug("documents listed", zap.Int("count", len(docs)))
		fmt.Printf("shipments needing review: %d\n", review)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: manifest <command>")
	fmt.Println("commands:")
	fmt.Println("  run --input=... [--type=auto|xlsx|csv|pdf|html|text|eml|png] [--docType=shipment_manifest] [--sheet=N] [--noHeader] [--output=...xlsx] [--json]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process --provider=gmail|imap [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  inbox:watch [--dir=./data/inbox] [--backfill=true]")
	fmt.Println("  export:xlsx --documentId=... --out=./out/result.xlsx")
	fmt.Println("  documents [--limit=20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
