package store

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lifelist/internal/dateparse"
	"lifelist/internal/model"
)

// ListKey is the top-level key holding the event list.
const ListKey = "upcoming"

const (
	keyName      = "name"
	keyPriority  = "priority"
	keyLocation  = "location"
	keyStart     = "start"
	keyEnd       = "end"
	keyFrequency = "frequency"
	keyTags      = "tags"
)

var eventKeys = []string{keyName, keyPriority, keyLocation, keyStart, keyEnd, keyFrequency, keyTags}

// rawEvent is the written shape of one event, in canonical key order.
type rawEvent struct {
	Name      string          `yaml:"name"`
	Priority  float64         `yaml:"priority"`
	Location  *string         `yaml:"location"`
	Start     *string         `yaml:"start"`
	End       *string         `yaml:"end,omitempty"`
	Frequency model.Frequency `yaml:"frequency"`
	Tags      []string        `yaml:"tags"`
}

// Document is a parsed data file. It keeps the YAML node tree so that
// existing entries, other top-level keys and comments survive a
// read-modify-write cycle.
type Document struct {
	root *yaml.Node
	list *yaml.Node
}

// ParseDocument checks the document structure: a mapping with an
// "upcoming" list. Entries are not decoded until Events is called.
func ParseDocument(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &model.ValidationError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, &model.ValidationError{Field: ListKey, Message: "is required"}
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, &model.ValidationError{Message: fmt.Sprintf("expected a mapping with an %q list", ListKey)}
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != ListKey {
			continue
		}
		list := top.Content[i+1]
		switch {
		case isNull(list):
			// "upcoming:" with nothing after it is an empty list.
			*list = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		case list.Kind != yaml.SequenceNode:
			return nil, &model.ValidationError{Field: ListKey, Message: "must be a list"}
		}
		return &Document{root: &root, list: list}, nil
	}
	return nil, &model.ValidationError{Field: ListKey, Message: "is required"}
}

// Len returns the number of entries in the list.
func (d *Document) Len() int {
	return len(d.list.Content)
}

// Events decodes and validates every entry. All violations are reported,
// each prefixed with the entry position ("upcoming[2].priority").
func (d *Document) Events(p *dateparse.Parser) ([]model.Event, error) {
	events := make([]model.Event, 0, len(d.list.Content))
	var errs []error
	for i, n := range d.list.Content {
		ev, err := decodeEvent(n, p)
		if err != nil {
			prefix := fmt.Sprintf("%s[%d]", ListKey, i)
			for _, e := range flatten(err) {
				errs = append(errs, withPrefix(e, prefix))
			}
			continue
		}
		events = append(events, ev)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return events, nil
}

// Append adds ev to the end of the list. Instants are written with
// p.Format so that they parse back to the same minute.
func (d *Document) Append(ev model.Event, p *dateparse.Parser) error {
	var n yaml.Node
	if err := n.Encode(toRaw(ev, p)); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	// An empty flow list ("upcoming: []") becomes a block list.
	d.list.Style = 0
	d.list.Content = append(d.list.Content, &n)
	return nil
}

// Bytes renders the document with two-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode is ParseDocument followed by Events.
func Decode(data []byte, p *dateparse.Parser) ([]model.Event, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Events(p)
}

// DecodeEvent decodes one event written the way it appears in the list.
// JSON is accepted since it is valid YAML.
func DecodeEvent(data []byte, p *dateparse.Parser) (model.Event, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return model.Event{}, &model.ValidationError{Message: fmt.Sprintf("invalid event body: %v", err)}
	}
	if len(root.Content) == 0 {
		return model.Event{}, &model.ValidationError{Message: "event body is empty"}
	}
	return decodeEvent(root.Content[0], p)
}

func decodeEvent(n *yaml.Node, p *dateparse.Parser) (model.Event, error) {
	if n.Kind != yaml.MappingNode {
		return model.Event{}, &model.ValidationError{Message: "must be a mapping"}
	}

	var (
		ev          model.Event
		errs        []error
		hasName     bool
		hasPriority bool
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		switch key {
		case keyName:
			if err := val.Decode(&ev.Name); err != nil || isNull(val) {
				errs = append(errs, &model.ValidationError{Field: keyName, Message: "must be a string"})
				continue
			}
			hasName = true
		case keyPriority:
			if err := val.Decode(&ev.Priority); err != nil || isNull(val) {
				errs = append(errs, &model.ValidationError{Field: keyPriority, Value: val.Value, Message: "must be a number"})
				continue
			}
			hasPriority = true
		case keyLocation:
			if isNull(val) {
				continue
			}
			if err := val.Decode(&ev.Location); err != nil {
				errs = append(errs, &model.ValidationError{Field: keyLocation, Message: "must be a string or null"})
			}
		case keyStart, keyEnd:
			t, err := decodeInstant(key, val, p)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if key == keyStart {
				ev.Start = t
			} else {
				ev.End = t
			}
		case keyFrequency:
			if isNull(val) {
				continue
			}
			if err := ev.Frequency.UnmarshalYAML(val); err != nil {
				errs = append(errs, err)
			}
		case keyTags:
			if isNull(val) {
				continue
			}
			if err := val.Decode(&ev.Tags); err != nil {
				errs = append(errs, &model.ValidationError{Field: keyTags, Message: "must be a list of strings"})
			}
		default:
			errs = append(errs, &model.ValidationError{
				Field:   key,
				Message: "is not a known field (expected one of " + strings.Join(eventKeys, ", ") + ")",
			})
		}
	}
	if !hasName && !hasFieldError(errs, keyName) {
		errs = append(errs, &model.ValidationError{Field: keyName, Message: "is required"})
	}
	if !hasPriority && !hasFieldError(errs, keyPriority) {
		errs = append(errs, &model.ValidationError{Field: keyPriority, Message: "is required"})
	}
	if len(errs) > 0 {
		return model.Event{}, errors.Join(errs...)
	}

	ev.Normalize()
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

func decodeInstant(field string, val *yaml.Node, p *dateparse.Parser) (t time.Time, err error) {
	if isNull(val) {
		return t, nil
	}
	if val.Kind != yaml.ScalarNode {
		return t, &model.ValidationError{Field: field, Message: "must be a date string or null"}
	}
	t, err = p.Parse(val.Value)
	if err != nil {
		return t, &model.ValidationError{Field: field, Message: err.Error()}
	}
	return t, nil
}

func toRaw(ev model.Event, p *dateparse.Parser) rawEvent {
	raw := rawEvent{
		Name:      ev.Name,
		Priority:  ev.Priority,
		Frequency: ev.Frequency,
		Tags:      ev.Tags,
	}
	if raw.Frequency.Kind == "" {
		raw.Frequency.Kind = model.Once
	}
	if raw.Tags == nil {
		raw.Tags = []string{}
	}
	if ev.Location != "" {
		loc := ev.Location
		raw.Location = &loc
	}
	if !ev.IsTodo() {
		s := p.Format(ev.Start)
		raw.Start = &s
	}
	if ev.HasEnd() {
		s := p.Format(ev.End)
		raw.End = &s
	}
	return raw
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func hasFieldError(errs []error, field string) bool {
	for _, err := range errs {
		var ve *model.ValidationError
		if errors.As(err, &ve) && ve.Field == field {
			return true
		}
	}
	return false
}

// flatten splits an errors.Join result back into its parts.
func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func withPrefix(err error, prefix string) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve.WithPrefix(prefix)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
