package main

import (
	"strings"
	"testing"
)

func TestUsageDocumentsProgressLines(t *testing.T) {
	if !strings.Contains(usage, `"Percentage Progress: N" is printed once after each macro-step, N = 10, 20, ..., 100.`) {
		t.Fatalf("usage must describe the progress lines")
	}
	if !strings.Contains(usage, `no initial "Percentage Progress: 0" line`) {
		t.Fatalf("usage must note the missing 0%% line")
	}
}
