package itinerary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type PayloadKind int

const (
	PayloadForm PayloadKind = iota + 1
	PayloadJSON
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadForm:
		return "form"
	case PayloadJSON:
		return "json"
	default:
		return "unknown"
	}
}

// PayloadKindFromContentType maps an HTTP Content-Type onto a payload kind.
func PayloadKindFromContentType(contentType string) (PayloadKind, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedPayload, contentType)
	}
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return PayloadForm, nil
	case "application/json":
		return PayloadJSON, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedPayload, mediaType)
	}
}

// Payload is an ingestion request body. Exactly one of Form or JSON is set,
// according to Kind.
type Payload struct {
	Kind PayloadKind
	Form url.Values
	JSON []byte
}

func FormPayload(values url.Values) Payload {
	return Payload{Kind: PayloadForm, Form: values}
}

func JSONPayload(body []byte) Payload {
	return Payload{Kind: PayloadJSON, JSON: body}
}

type Day struct {
	Number     int      `json:"day"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

func (d Day) Description() string {
	return strings.Join(d.Activities, "\n")
}

type Plan struct {
	Title       string
	Description string
	StartDate   string
	EndDate     string
	ImageURL    string
	Days        []Day
	// Raw is the payload as received, kept for the plan archive.
	Raw []byte
}

func Parse(payload Payload) (Plan, error) {
	switch payload.Kind {
	case PayloadForm:
		return parseForm(payload.Form), nil
	case PayloadJSON:
		return parseJSON(payload.JSON)
	default:
		return Plan{}, fmt.Errorf("%w: kind %d", ErrUnsupportedPayload, payload.Kind)
	}
}

func parseForm(values url.Values) Plan {
	plan := Plan{
		Title:       firstNonEmpty(values.Get("title"), values.Get("destination")),
		Description: firstNonEmpty(values.Get("description"), values.Get("interests")),
		StartDate:   strings.TrimSpace(values.Get("startDate")),
		EndDate:     strings.TrimSpace(values.Get("endDate")),
		ImageURL:    strings.TrimSpace(values.Get("imageUrl")),
		Raw:         []byte(values.Encode()),
	}
	if aiPlan := values.Get("aiPlan"); strings.TrimSpace(aiPlan) != "" {
		if doc, ok := decodeObject([]byte(CleanPlanText(aiPlan))); ok {
			plan.fillFrom(doc)
			plan.Days = parseDays(doc["itinerary"])
		}
	}
	if plan.Days == nil {
		plan.Days = []Day{}
	}
	return plan
}

func parseJSON(body []byte) (Plan, error) {
	doc, ok := decodeObject(body)
	if !ok {
		return Plan{}, fmt.Errorf("%w: body is not a JSON object", ErrMissingRequiredField)
	}
	plan := Plan{Raw: body}
	plan.fillFrom(doc)

	if itinerary, ok := doc["itinerary"]; ok {
		plan.Days = parseDays(itinerary)
	} else if nested, ok := decodePlanField(doc["plan"]); ok {
		plan.fillFrom(nested)
		plan.Days = parseDays(nested["itinerary"])
	}
	if plan.Days == nil {
		plan.Days = []Day{}
	}
	return plan, nil
}

// fillFrom copies trip fields from doc into the plan where still empty.
func (p *Plan) fillFrom(doc map[string]json.RawMessage) {
	set := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, key := range keys {
			if v := stringValue(doc[key]); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&p.Title, "title", "destination")
	set(&p.Description, "description", "interests")
	set(&p.StartDate, "startDate")
	set(&p.EndDate, "endDate")
	set(&p.ImageURL, "imageUrl")
}

// decodePlanField accepts the plan either as an object or as a JSON string
// holding the object, possibly wrapped in model output noise.
func decodePlanField(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, false
		}
		return decodeObject([]byte(CleanPlanText(text)))
	}
	return decodeObject(raw)
}

func decodeObject(data []byte) (map[string]json.RawMessage, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

// stringValue returns a trimmed string, or a list of strings joined with ", ".
// Anything else yields "".
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return ""
}

// parseDays decodes an itinerary array. Only entries without a usable title
// are dropped; every other entry yields a day, so K titled entries become K
// waypoints. A value that is not an array yields no days.
func parseDays(raw json.RawMessage) []Day {
	days := []Day{}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return days
	}
	for i, entry := range entries {
		var fields struct {
			Day        json.RawMessage `json:"day"`
			Title      json.RawMessage `json:"title"`
			Activities json.RawMessage `json:"activities"`
		}
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}
		var title string
		if err := json.Unmarshal(fields.Title, &title); err != nil {
			continue
		}
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		number, ok := parseDayNumber(fields.Day)
		if !ok {
			number = i + 1
		}
		days = append(days, Day{
			Number:     number,
			Title:      title,
			Activities: parseActivities(fields.Activities),
		})
	}
	return days
}

// parseDayNumber accepts 3, 3.0 and "3". The number is only a display label.
func parseDayNumber(raw json.RawMessage) (int, bool) {
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		number = json.Number(strings.TrimSpace(text))
	}
	f, err := strconv.ParseFloat(number.String(), 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// parseActivities keeps the string entries of an array, or a lone string as a
// single activity. Anything else is no activities.
func parseActivities(raw json.RawMessage) []string {
	activities := []string{}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			activities = append(activities, single)
		}
		return activities
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return activities
	}
	for _, item := range list {
		var activity string
		if err := json.Unmarshal(item, &activity); err == nil {
			activities = append(activities, activity)
		}
	}
	return activities
}

// CleanPlanText strips markdown code fences from model output and keeps the
// outermost JSON object.
func CleanPlanText(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.Contains(text[:nl], "{") {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

const dateLayout = "2006-01-02"

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// Dates returns the parsed start and end dates. Call Validate first.
func (p Plan) Dates() (time.Time, time.Time, error) {
	start, err := parseDate(p.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: startDate %q is not a date", ErrMissingRequiredField, p.StartDate)
	}
	end, err := parseDate(p.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: endDate %q is not a date", ErrMissingRequiredField, p.EndDate)
	}
	return start, end, nil
}

func (p Plan) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"startDate", p.StartDate},
		{"endDate", p.EndDate},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, field.name)
		}
	}
	start, end, err := p.Dates()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate is before startDate", ErrMissingRequiredField)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
