package compose

import (
	"fmt"
	"strings"

	"github.com/venuegate/courier/internal/domain"
)

// Template is one of the per-kind message shapes. Each knows its required
// fields, how to render its plain-text body, and the audit snapshot persisted
// alongside the delivery record.
type Template interface {
	Kind() domain.Kind
	Validate() error
	Render() string
	Metadata() map[string]string
}

// Confirmation is the booking confirmation message shape.
type Confirmation struct {
	RecipientName string
	EventName     string
	EventDate     string
	EventTime     string
	Location      string
}

func (c Confirmation) Kind() domain.Kind { return domain.KindConfirmation }

func (c Confirmation) Validate() error {
	if strings.TrimSpace(c.RecipientName) == "" {
		return fmt.Errorf("%w: recipient name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(c.EventName) == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(c.EventDate) == "" {
		return fmt.Errorf("%w: event date is required", domain.ErrValidation)
	}
	if strings.TrimSpace(c.EventTime) == "" {
		return fmt.Errorf("%w: event time is required", domain.ErrValidation)
	}
	if strings.TrimSpace(c.Location) == "" {
		return fmt.Errorf("%w: location is required", domain.ErrValidation)
	}
	return nil
}

func (c Confirmation) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! Your booking for %s is confirmed.\n", strings.TrimSpace(c.RecipientName), strings.TrimSpace(c.EventName))
	fmt.Fprintf(&b, "Date: %s\n", strings.TrimSpace(c.EventDate))
	fmt.Fprintf(&b, "Time: %s\n", strings.TrimSpace(c.EventTime))
	fmt.Fprintf(&b, "Location: %s\n", strings.TrimSpace(c.Location))
	b.WriteString("See you there!")
	return b.String()
}

func (c Confirmation) Metadata() map[string]string {
	return map[string]string{
		"kind":      domain.KindConfirmation.String(),
		"eventName": strings.TrimSpace(c.EventName),
		"eventDate": strings.TrimSpace(c.EventDate),
		"eventTime": strings.TrimSpace(c.EventTime),
		"location":  strings.TrimSpace(c.Location),
	}
}

// Broadcast is the free-text segment broadcast shape.
type Broadcast struct {
	RecipientName string
	Body          string
}

func (b Broadcast) Kind() domain.Kind { return domain.KindBroadcast }

func (b Broadcast) Validate() error {
	if strings.TrimSpace(b.Body) == "" {
		return fmt.Errorf("%w: message body is required", domain.ErrValidation)
	}
	return nil
}

func (b Broadcast) Render() string {
	body := strings.TrimSpace(b.Body)
	name := strings.TrimSpace(b.RecipientName)
	if name == "" {
		return body
	}
	return fmt.Sprintf("Hi %s!\n%s", name, body)
}

func (b Broadcast) Metadata() map[string]string {
	return map[string]string{
		"kind": domain.KindBroadcast.String(),
		"body": strings.TrimSpace(b.Body),
	}
}

// Feedback is the post-event survey request shape. The survey link is optional.
type Feedback struct {
	RecipientName string
	EventName     string
	SurveyLink    string
}

func (f Feedback) Kind() domain.Kind { return domain.KindFeedback }

func (f Feedback) Validate() error {
	if strings.TrimSpace(f.RecipientName) == "" {
		return fmt.Errorf("%w: recipient name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(f.EventName) == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrValidation)
	}
	return nil
}

func (f Feedback) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s! Thanks for joining us at %s.\n", strings.TrimSpace(f.RecipientName), strings.TrimSpace(f.EventName))
	b.WriteString("We'd love to hear what you thought.")
	if link := strings.TrimSpace(f.SurveyLink); link != "" {
		fmt.Fprintf(&b, "\nShare your feedback here: %s", link)
	}
	return b.String()
}

func (f Feedback) Metadata() map[string]string {
	meta := map[string]string{
		"kind":      domain.KindFeedback.String(),
		"eventName": strings.TrimSpace(f.EventName),
	}
	if link := strings.TrimSpace(f.SurveyLink); link != "" {
		meta["surveyLink"] = link
	}
	return meta
}

// Render validates the template and returns the message body.
func Render(t Template) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: template is required", domain.ErrValidation)
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t.Render(), nil
}
