package compose

import (
	"errors"
	"strings"
	"testing"

	"github.com/venuegate/courier/internal/domain"
)

func TestRenderConfirmation(t *testing.T) {
	t.Parallel()

	body, err := Render(Confirmation{
		RecipientName: "Laura",
		EventName:     "Jazz Night",
		EventDate:     "2026-09-12",
		EventTime:     "20:00",
		Location:      "Main Hall",
	})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}

	for _, want := range []string{"Laura", "Jazz Night", "2026-09-12", "20:00", "Main Hall"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body = %q, missing %q", body, want)
		}
	}
}

func TestRenderConfirmationMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template Confirmation
	}{
		{name: "missing name", template: Confirmation{EventName: "Jazz Night", EventDate: "2026-09-12", EventTime: "20:00", Location: "Main Hall"}},
		{name: "missing event name", template: Confirmation{RecipientName: "Laura", EventDate: "2026-09-12", EventTime: "20:00", Location: "Main Hall"}},
		{name: "missing date", template: Confirmation{RecipientName: "Laura", EventName: "Jazz Night", EventTime: "20:00", Location: "Main Hall"}},
		{name: "missing time", template: Confirmation{RecipientName: "Laura", EventName: "Jazz Night", EventDate: "2026-09-12", Location: "Main Hall"}},
		{name: "missing location", template: Confirmation{RecipientName: "Laura", EventName: "Jazz Night", EventDate: "2026-09-12", EventTime: "20:00"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Render(tt.template); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Render() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRenderBroadcast(t *testing.T) {
	t.Parallel()

	body, err := Render(Broadcast{RecipientName: "Carlos", Body: "Doors open at 7pm this Friday."})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}
	if !strings.Contains(body, "Carlos") || !strings.Contains(body, "Doors open at 7pm") {
		t.Fatalf("body = %q, want greeting and broadcast text", body)
	}

	// A broadcast without a display name still renders the raw body.
	body, err = Render(Broadcast{Body: "Doors open at 7pm this Friday."})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}
	if body != "Doors open at 7pm this Friday." {
		t.Fatalf("body = %q, want raw broadcast text", body)
	}

	if _, err := Render(Broadcast{RecipientName: "Carlos"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Render() error = %v, want ErrValidation for empty body", err)
	}
}

func TestRenderFeedback(t *testing.T) {
	t.Parallel()

	body, err := Render(Feedback{RecipientName: "Ana", EventName: "Jazz Night", SurveyLink: "https://example.test/s/1"})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}
	if !strings.Contains(body, "https://example.test/s/1") {
		t.Fatalf("body = %q, want survey link", body)
	}

	body, err = Render(Feedback{RecipientName: "Ana", EventName: "Jazz Night"})
	if err != nil {
		t.Fatalf("Render() unexpected error = %v", err)
	}
	if strings.Contains(body, "http") {
		t.Fatalf("body = %q, must not contain a link when none was given", body)
	}

	if _, err := Render(Feedback{RecipientName: "Ana"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Render() error = %v, want ErrValidation for missing event name", err)
	}
}

func TestTemplateMetadata(t *testing.T) {
	t.Parallel()

	meta := Confirmation{
		RecipientName: "Laura",
		EventName:     "Jazz Night",
		EventDate:     "2026-09-12",
		EventTime:     "20:00",
		Location:      "Main Hall",
	}.Metadata()

	if meta["eventName"] != "Jazz Night" {
		t.Fatalf("metadata eventName = %q, want Jazz Night", meta["eventName"])
	}
	if meta["kind"] != domain.KindConfirmation.String() {
		t.Fatalf("metadata kind = %q, want confirmation", meta["kind"])
	}

	feedbackMeta := Feedback{RecipientName: "Ana", EventName: "Jazz Night"}.Metadata()
	if _, ok := feedbackMeta["surveyLink"]; ok {
		t.Fatal("metadata must omit surveyLink when none was given")
	}
}
