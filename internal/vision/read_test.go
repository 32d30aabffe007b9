package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// readServer simulates the provider's submit/poll protocol. statuses is
// the sequence of statuses returned by successive polls; the last entry
// repeats if polling continues past it.
func readServer(t *testing.T, statuses []string, lines int) (*httptest.Server, *int) {
	t.Helper()
	polls := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Operation-Location", server.URL+"/vision/v3.2/read/analyzeResults/op-1")
			w.WriteHeader(http.StatusAccepted)
			return
		}

		idx := polls
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		polls++
		status := statuses[idx]

		resp := map[string]interface{}{"status": status}
		if status == "succeeded" {
			lineObjs := make([]map[string]interface{}, 0, lines)
			for i := 0; i < lines; i++ {
				lineObjs = append(lineObjs, map[string]interface{}{
					"boundingBox": []float64{0, 0, 10, 0, 10, 5, 0, 5},
					"text":        fmt.Sprintf("line %d", i+1),
				})
			}
			resp["analyzeResult"] = map[string]interface{}{
				"readResults": []map[string]interface{}{{"page": 1, "lines": lineObjs}},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	return server, &polls
}

func TestExtractText_SucceedsOnNinthPoll(t *testing.T) {
	statuses := make([]string, 9)
	for i := 0; i < 8; i++ {
		statuses[i] = "running"
	}
	statuses[8] = "succeeded"

	server, polls := readServer(t, statuses, 3)
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.ExtractText(context.Background(), "https://example.com/doc.png")

	if !result.Detected {
		t.Fatalf("Expected detected=true, got %+v", result)
	}
	if len(result.Lines) != 3 {
		t.Errorf("Expected 3 lines, got %d", len(result.Lines))
	}
	if result.Lines[0].Text != "line 1" {
		t.Errorf("Expected ordered lines, first was %q", result.Lines[0].Text)
	}
	if *polls != 9 {
		t.Errorf("Expected 9 polls, got %d", *polls)
	}
}

func TestExtractText_TimesOutAfterMaxAttempts(t *testing.T) {
	server, polls := readServer(t, []string{"running"}, 0)
	defer server.Close()

	clock := &fakeClock{}
	client := NewClient(ClientConfig{
		Endpoint:     server.URL,
		Key:          "test-key",
		PollAttempts: 10,
		Clock:        clock,
	})

	result := client.ExtractText(context.Background(), "https://example.com/doc.png")

	if result.Detected {
		t.Errorf("Expected detected=false on timeout, got %+v", result)
	}
	if !strings.Contains(result.Note, "timed out after 10 attempts") {
		t.Errorf("Expected timeout note, got %q", result.Note)
	}
	if *polls != 10 {
		t.Errorf("Expected exactly 10 polls, got %d", *polls)
	}
	if clock.sleeps != 10 {
		t.Errorf("Expected one sleep per attempt, got %d", clock.sleeps)
	}
}

func TestExtractText_ProviderFailureDegrades(t *testing.T) {
	server, _ := readServer(t, []string{"running", "failed"}, 0)
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.ExtractText(context.Background(), "https://example.com/doc.png")

	if result.Detected {
		t.Errorf("Expected detected=false on failure, got %+v", result)
	}
	if !strings.Contains(result.Note, "failed at provider") {
		t.Errorf("Expected failure note, got %q", result.Note)
	}
}

func TestExtractText_SubmitErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.ExtractText(context.Background(), "https://example.com/doc.png")

	if result.Detected {
		t.Errorf("Expected detected=false, got %+v", result)
	}
	if !strings.Contains(result.Note, "submit failed") {
		t.Errorf("Expected submit failure note, got %q", result.Note)
	}
}

func TestExtractText_CapsLinesAtTwenty(t *testing.T) {
	server, _ := readServer(t, []string{"succeeded"}, 30)
	defer server.Close()

	client := newTestClient(server.URL)
	result := client.ExtractText(context.Background(), "https://example.com/doc.png")

	if !result.Detected {
		t.Fatalf("Expected detected=true, got %+v", result)
	}
	if len(result.Lines) != maxTextLines {
		t.Errorf("Expected %d lines, got %d", maxTextLines, len(result.Lines))
	}
	if result.Lines[0].Text != "line 1" || result.Lines[19].Text != "line 20" {
		t.Errorf("Expected first 20 lines in order, got first=%q last=%q",
			result.Lines[0].Text, result.Lines[19].Text)
	}
}

func TestClassifyReadStatus(t *testing.T) {
	tests := []struct {
		status string
		want   pollOutcome
	}{
		{"notStarted", pollContinue},
		{"running", pollContinue},
		{"succeeded", pollSucceeded},
		{"failed", pollFailed},
		{"somethingNew", pollContinue},
	}

	for _, tt := range tests {
		if got := classifyReadStatus(tt.status); got != tt.want {
			t.Errorf("classifyReadStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
