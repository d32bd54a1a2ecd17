package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(enabled bool, salt string) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar(), redact: redactor{enabled: enabled, salt: salt}}, logs
}

func TestRedactsSecretsAndHashesTeacherIDs(t *testing.T) {
	log, logs := observed(true, "pepper")
	log.Info("ingest", "openai_api_key", "sk-123", "teacher_id", "t-42", "module_id", "m-1")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["openai_api_key"] != "[REDACTED]" {
		t.Fatalf("api key not redacted: %v", fields["openai_api_key"])
	}
	hashed, _ := fields["teacher_id"].(string)
	if hashed == "t-42" || len(hashed) != len("hash:")+12 {
		t.Fatalf("teacher_id not hashed: %q", hashed)
	}
	if fields["module_id"] != "m-1" {
		t.Fatalf("module_id should pass through: %v", fields["module_id"])
	}
}

func TestHashIsStableForSameSalt(t *testing.T) {
	a := redactor{enabled: true, salt: "s"}
	b := redactor{enabled: true, salt: "s"}
	c := redactor{enabled: true, salt: "other"}
	if a.hash("t-1") != b.hash("t-1") {
		t.Fatalf("hash must be deterministic")
	}
	if a.hash("t-1") == c.hash("t-1") {
		t.Fatalf("salt must change the hash")
	}
}

func TestRedactionDisabledPassesValues(t *testing.T) {
	log, logs := observed(false, "")
	log.With("password", "hunter2").Warn("x")
	if got := logs.All()[0].ContextMap()["password"]; got != "hunter2" {
		t.Fatalf("expected raw value when redaction disabled, got %v", got)
	}
}

func TestOddKeyValueCountKeepsTrailingKey(t *testing.T) {
	r := redactor{enabled: true}
	out := r.kvs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %#v", out)
	}
}
