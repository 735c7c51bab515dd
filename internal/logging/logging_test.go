package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLogErrorWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("error", &buf)

	LogError(logger, "service", "Checkout", "create sales", map[string]string{"transactionId": "txn-1"}, errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v (raw %q)", err, buf.String())
	}
	if entry["module"] != "service" || entry["funcName"] != "Checkout" || entry["msg"] != "boom" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["data"]; !ok {
		t.Fatalf("expected data field, got %v", entry)
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New("not-a-level")
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", logger.GetLevel())
	}
}
