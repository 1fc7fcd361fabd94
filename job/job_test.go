package job_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/xraph/intake/job"
)

func TestParse_RoundTrip(t *testing.T) {
	in := &job.Job{
		ID:   "job-1",
		Type: "resize",
		Data: json.RawMessage(`{"width":800}`),
	}

	body, err := job.Marshal(in)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	out, err := job.Parse(body)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if out.ID != in.ID || out.Type != in.Type {
		t.Errorf("parsed job = %+v, want %+v", out, in)
	}
	if string(out.Data) != string(in.Data) {
		t.Errorf("parsed data = %s, want %s", out.Data, in.Data)
	}
}

func TestParse_InvalidBody(t *testing.T) {
	for _, body := range []string{"not json", "{truncated", `"a plain string"`, "42"} {
		if _, err := job.Parse([]byte(body)); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", body)
		}
	}
}

func TestHandlerFor_UnmarshalsData(t *testing.T) {
	type resizeInput struct {
		Width int `json:"width"`
	}

	var got resizeInput
	h := job.HandlerFor(func(_ context.Context, _ *job.Job, data resizeInput) error {
		got = data
		return nil
	})

	j := &job.Job{Type: "resize", Data: json.RawMessage(`{"width":800}`)}
	if err := h(context.Background(), j); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Width != 800 {
		t.Errorf("data.Width = %d, want 800", got.Width)
	}
}

func TestHandlerFor_BadDataFailsHandler(t *testing.T) {
	type resizeInput struct {
		Width int `json:"width"`
	}

	h := job.HandlerFor(func(_ context.Context, _ *job.Job, _ resizeInput) error {
		t.Fatal("typed handler should not run on bad data")
		return nil
	})

	j := &job.Job{Type: "resize", Data: json.RawMessage(`{"width":"eight hundred"}`)}
	if err := h(context.Background(), j); err == nil {
		t.Fatal("expected error for unmarshalable data")
	}
}

func TestHandlerFor_EmptyData(t *testing.T) {
	called := false
	h := job.HandlerFor(func(_ context.Context, _ *job.Job, data struct{ N int }) error {
		called = true
		if data.N != 0 {
			t.Errorf("data.N = %d, want zero value", data.N)
		}
		return nil
	})

	if err := h(context.Background(), &job.Job{Type: "noop"}); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatal("typed handler was not called")
	}
}
