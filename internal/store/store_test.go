package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lifelist/internal/dateparse"
	"lifelist/internal/model"
)

var parser = &dateparse.Parser{
	Location: time.UTC,
	Now:      func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) },
}

const sampleDoc = `# personal agenda
upcoming:
  - name: "Test Event"
    priority: 5
    location: "Test Location"
    start: "2023-01-01"
    tags:
      - "Test Tag"
  - name: Abomination Vaults
    priority: 9
    location: Online
    start: 2023-04-12 19:00:00 PT
    end: 2023-04-12 22:00:00 PT
    frequency: weekly
    tags:
      - Pathfinder
  - name: "TODO Test Event"
    priority: 10
    location: null
    tags: []
  - name: Labor Day
    priority: 3
    start: 2025-09-01
    frequency: {kind: floating, weekday: monday, week: first, month: september}
    tags: []
settings:
  theme: dark
`

func TestDecodeSample(t *testing.T) {
	events, err := Decode([]byte(sampleDoc), parser)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}

	first := events[0]
	if first.Name != "Test Event" || first.Priority != 5 || first.Location != "Test Location" {
		t.Errorf("first = %+v", first)
	}
	if !first.Start.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) || first.HasEnd() {
		t.Errorf("first start/end = %v / %v", first.Start, first.End)
	}
	if first.Frequency.Kind != model.Once {
		t.Errorf("default frequency = %q, want once", first.Frequency.Kind)
	}

	weekly := events[1]
	if weekly.Frequency.Kind != model.Weekly || weekly.Start.Location().String() != "America/Los_Angeles" {
		t.Errorf("weekly = %+v", weekly)
	}
	if weekly.End.Sub(weekly.Start) != 3*time.Hour {
		t.Errorf("weekly duration = %v, want 3h", weekly.End.Sub(weekly.Start))
	}

	todo := events[2]
	if !todo.IsTodo() || todo.Location != "" || todo.Tags == nil {
		t.Errorf("todo = %+v", todo)
	}

	if events[3].Frequency != (model.Frequency{Kind: model.Floating, Weekday: time.Monday, Week: 1, Month: time.September}) {
		t.Errorf("floating = %+v", events[3].Frequency)
	}
}

func TestDecodeStructureErrors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"bare list":      "- name: x\n  priority: 1\n",
		"missing list":   "other: 1\n",
		"list is scalar": "upcoming: nope\n",
		"broken yaml":    "upcoming: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(doc), parser)
			if err == nil {
				t.Fatal("expected error")
			}
			if !model.IsValidationError(err) {
				t.Errorf("error %v is not a ValidationError", err)
			}
		})
	}
}

func TestDecodeEmptyList(t *testing.T) {
	for _, doc := range []string{"upcoming: []\n", "upcoming:\n"} {
		events, err := Decode([]byte(doc), parser)
		if err != nil {
			t.Errorf("Decode(%q): %v", doc, err)
			continue
		}
		if len(events) != 0 {
			t.Errorf("Decode(%q) = %d events", doc, len(events))
		}
	}
}

func TestDecodeEntryErrors(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  string
	}{
		{"unknown key", "name: x\n    priority: 1\n    colour: red", "upcoming[0].colour: is not a known field"},
		{"missing name", "priority: 1", "upcoming[0].name: is required"},
		{"missing priority", "name: x", "upcoming[0].priority: is required"},
		{"priority range", "name: x\n    priority: 11", "upcoming[0].priority: must be between 0 and 10"},
		{"priority type", "name: x\n    priority: high", "upcoming[0].priority: must be a number"},
		{"bad date", "name: x\n    priority: 1\n    start: \"12\"", `upcoming[0].start: "12" is not a valid date`},
		{"bad frequency", "name: x\n    priority: 1\n    start: 2025-01-01\n    frequency: hourly", "upcoming[0].frequency: must be one of"},
		{"end before start", "name: x\n    priority: 1\n    start: 2025-01-02\n    end: 2025-01-01", "upcoming[0].end: start must be before end"},
		{"end without start", "name: x\n    priority: 1\n    end: 2025-01-01", "upcoming[0].end: cannot be defined if start is null"},
		{"recurring todo", "name: x\n    priority: 1\n    frequency: weekly", "upcoming[0].start: must be defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "upcoming:\n  - " + tt.entry + "\n"
			_, err := Decode([]byte(doc), parser)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
			if !model.IsValidationError(err) {
				t.Errorf("error %v is not a ValidationError", err)
			}
		})
	}
}

func TestDecodeReportsEveryEntry(t *testing.T) {
	doc := "upcoming:\n  - name: a\n    priority: 20\n  - name: ok\n    priority: 1\n  - name: \"\"\n    priority: 1\n"
	_, err := Decode([]byte(doc), parser)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "upcoming[0].priority") || !strings.Contains(msg, "upcoming[2].name") {
		t.Errorf("error %q should name both bad entries", msg)
	}
	if strings.Contains(msg, "upcoming[1]") {
		t.Errorf("error %q mentions the valid entry", msg)
	}
}

func TestAppendRoundTrip(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	added := model.Event{
		Name:      "Dinner",
		Priority:  6.5,
		Start:     time.Date(2024, 1, 25, 19, 47, 0, 0, ny),
		Frequency: model.Frequency{Kind: model.Once},
		Tags:      []string{"food", "friends"},
	}
	todo := model.Event{Name: "Call mom", Priority: 8}
	if err := doc.Append(added, parser); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := doc.Append(todo, parser); err != nil {
		t.Fatalf("Append: %v", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	text := string(out)
	for _, want := range []string{"# personal agenda", "theme: dark", "January 25, 2024 7:47 PM ET", "location: null", "start: null"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	block := text[strings.Index(text, "name: Dinner"):]
	last := -1
	for _, key := range []string{"name:", "priority:", "location:", "start:", "frequency:", "tags:"} {
		i := strings.Index(block, key)
		if i <= last {
			t.Errorf("%s out of canonical order:\n%s", key, block)
		}
		last = i
	}

	events, err := Decode(out, parser)
	if err != nil {
		t.Fatalf("re-Decode: %v\n%s", err, text)
	}
	if len(events) != 6 {
		t.Fatalf("got %d events, want 6", len(events))
	}
	got := events[4]
	if got.Name != added.Name || got.Priority != added.Priority || got.Location != "" {
		t.Errorf("round trip = %+v", got)
	}
	if !got.Start.Equal(added.Start) {
		t.Errorf("start = %v, want %v", got.Start, added.Start)
	}
	if strings.Join(got.Tags, ",") != "food,friends" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !events[5].IsTodo() || events[5].Name != "Call mom" {
		t.Errorf("todo round trip = %+v", events[5])
	}
}

func TestAppendToEmptyFlowList(t *testing.T) {
	doc, err := ParseDocument([]byte("upcoming: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Append(model.Event{Name: "x", Priority: 1}, parser); err != nil {
		t.Fatal(err)
	}
	out, err := doc.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 1 {
		t.Errorf("Len = %d", doc.Len())
	}
	if strings.Contains(string(out), "upcoming: [") {
		t.Errorf("list still in flow style:\n%s", out)
	}
	if _, err := Decode(out, parser); err != nil {
		t.Errorf("re-Decode: %v\n%s", err, out)
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	f := &File{Path: filepath.Join(dir, "data.yaml")}

	_, err := f.Read()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read missing = %v, want ErrNotFound", err)
	}
	if want := "data file not found: " + f.Path; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
	if err := f.Write([]byte("upcoming: []\n")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Write missing = %v, want ErrNotFound", err)
	}
	if _, err := f.Stat(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat missing = %v, want ErrNotFound", err)
	}

	if err := os.WriteFile(f.Path, []byte("upcoming: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	before, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Write([]byte(sampleDoc)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != sampleDoc {
		t.Errorf("Read returned %q", data)
	}
	after, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if after == before {
		t.Error("Stat did not change after Write")
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"name": " Dinner ", "priority": 7, "location": null, "start": "February 1, 2025 7:00 PM", "frequency": "weekly", "tags": ["food"]}`), parser)
	if err != nil {
		t.Fatalf("DecodeEvent JSON: %v", err)
	}
	if ev.Name != "Dinner" || ev.Priority != 7 || ev.Frequency.Kind != model.Weekly {
		t.Errorf("decoded %+v", ev)
	}
	if want := time.Date(2025, 2, 1, 19, 0, 0, 0, time.UTC); !ev.Start.Equal(want) {
		t.Errorf("start = %v, want %v", ev.Start, want)
	}

	ev, err = DecodeEvent([]byte("name: todo\npriority: 2\n"), parser)
	if err != nil {
		t.Fatalf("DecodeEvent YAML: %v", err)
	}
	if !ev.IsTodo() || len(ev.Tags) != 0 || ev.Frequency.Kind != model.Once {
		t.Errorf("decoded %+v", ev)
	}

	for _, body := range []string{"", "[1, 2]", `{"name": "x"}`, `{"name": "x", "priority": 3, "colour": "red"}`, "{"} {
		if _, err := DecodeEvent([]byte(body), parser); !model.IsValidationError(err) {
			t.Errorf("DecodeEvent(%q) = %v, want a ValidationError", body, err)
		}
	}
}

func TestExampleDataFileDecodes(t *testing.T) {
	f := &File{Path: filepath.Join("..", "..", "example", "data.yaml")}
	data, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	events, err := Decode(data, parser)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(events) != 7 {
		t.Errorf("example has %d events, want 7", len(events))
	}
}
