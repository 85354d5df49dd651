package utils

import (
	"regexp"
	"testing"
	"time"
)

var sessionIDPattern = regexp.MustCompile(`^session_1700000000000_[0-9a-z]{9}$`)

func TestGenerateSessionID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := GenerateSessionID(now)
		if err != nil {
			t.Fatalf("GenerateSessionID: %v", err)
		}
		if !sessionIDPattern.MatchString(id) {
			t.Fatalf("id %q does not match expected format", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
