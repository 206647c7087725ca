package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-dynforms/pkg/responses"
	"github.com/goliatone/go-dynforms/pkg/submission"
)

func sampleRecord() submission.Record {
	return submission.Record{
		FormID:    "9999",
		Responses: responses.Tree{"sec1": {"q1": responses.Text("Dana"), "q7": responses.NewMultiChoice("Yes")}},
		Comments:  responses.Comments{"sec1": {"q7": {"Yes": "noted"}}},
	}
}

func TestHTTPSinkPostsRecord(t *testing.T) {
	var body string
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		header = r.Header.Get("X-Token")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sink := submission.NewHTTPSink(server.URL, submission.WithHeader("X-Token", "abc"))
	if err := sink.Submit(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	want := `{"formId":"9999","responses":{"sec1":{"q1":"Dana","q7":["Yes"]}},"comments":{"sec1":{"q7":{"Yes":"noted"}}}}`
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if header != "abc" {
		t.Fatalf("expected header to be forwarded, got %q", header)
	}
}

func TestHTTPSinkRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	err := submission.NewHTTPSink(server.URL).Submit(context.Background(), sampleRecord())
	var statusErr *submission.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || statusErr.Body != "nope" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := submission.LogSink{Logger: zap.New(core)}
	if err := sink.Submit(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	entries := logs.FilterMessage("form submitted").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["form_id"] != "9999" || fields["answers"] != int64(2) {
		t.Fatalf("unexpected fields %v", fields)
	}

	var decoded submission.Record
	if err := json.Unmarshal([]byte(fields["record"].(string)), &decoded); err != nil {
		t.Fatalf("record field is not JSON: %v", err)
	}
}

func TestSinkFunc(t *testing.T) {
	var got submission.Record
	sink := submission.SinkFunc(func(_ context.Context, record submission.Record) error {
		got = record
		return nil
	})
	_ = sink.Submit(context.Background(), sampleRecord())
	if got.FormID != "9999" {
		t.Fatalf("record not forwarded")
	}
}
