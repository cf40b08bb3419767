package listener

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"manifest/internal"
	"manifest/internal/config"
	"manifest/internal/connectors"
	"manifest/internal/pipeline"
	"manifest/internal/storage"
)

const manifestMail = "From: ops@example.com\r\n" +
	"Subject: Shipment manifest\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Manifest attached.\r\n" +
	"--b1\r\n" +
	"Content-Type: text/csv\r\n" +
	"Content-Disposition: attachment; filename=\"load.csv\"\r\n" +
	"\r\n" +
	"Load No,Order No,Customer,Item Code,Qty\r\n" +
	"L5,O5,ACME,SKU5,3\r\n" +
	"--b1--\r\n"

type stubConnector struct {
	messages []internal.FetchedMailMessage
}

func (s stubConnector) Provider() string { return "stub" }

func (s stubConnector) FetchInbox(_ context.Context, _ connectors.Query) ([]internal.FetchedMailMessage, error) {
	return s.messages, nil
}

func TestRunCycleFetchesProcessesAndExports(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg := config.Config{
		RawMailDir:               filepath.Join(tmp, "raw"),
		OutputDir:                filepath.Join(tmp, "out"),
		MailListenerProvider:     "stub",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerAutoExport:   true,
	}
	proc := pipeline.NewProcessor(pipeline.ProcessorOptions{})
	ing := pipeline.NewIngestor(db, proc, internal.DefaultParseOptions(), nil)
	conn := stubConnector{messages: []internal.FetchedMailMessage{
		{Provider: "stub", MessageID: "<m1@example.com>", Subject: "Shipment manifest", Raw: []byte(manifestMail)},
	}}
	svc := NewService(db, cfg, ing, nil).WithConnectorFactory(func(context.Context, string) (connectors.MailConnector, error) {
		return conn, nil
	})

	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	email, err := db.GetEmailByProviderMessageID("stub", "<m1@example.com>")
	if err != nil || email == nil {
		t.Fatalf("email=%v err=%v", email, err)
	}
	if email.Status != pipeline.StatusExported {
		t.Fatalf("status=%s", email.Status)
	}
	matches, _ := filepath.Glob(filepath.Join(cfg.OutputDir, "listener", "*.xlsx"))
	if len(matches) != 1 {
		t.Fatalf("exports=%v", matches)
	}
	if _, err := os.Stat(matches[0]); err != nil {
		t.Fatal(err)
	}

	// A second cycle sees the same message and does not process it again.
	if err := svc.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	runs, _ := db.CountRuns()
	if runs != 1 {
		t.Fatalf("runs=%d", runs)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := sanitizeFileName("<a/b:c@x>"); got != "_a_b_c@x_" {
		t.Fatalf("got %q", got)
	}
}
