package workflow

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/orderdesk/orderdesk-api/internal/model"
)

// Vars is the single typed variable set templates may reference. Templates
// naming any other field are rejected by Registry.Validate at startup, so a
// typo can never render as a silent empty string in production.
type Vars struct {
	OrderCode  string
	OrderTitle string
	ActorName  string
	Reason     string
	Deadline   string
	Amount     string
}

// Template is one role's rendering of a workflow event.
type Template struct {
	Severity model.Severity
	Title    string
	Message  string
	Link     string
}

// Event is a named workflow occurrence with a per-role template set.
type Event struct {
	Name      string
	Templates map[model.Role]Template
}

// Registry holds every workflow event, keyed by name. Immutable after load.
type Registry struct {
	events map[string]Event
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z]+)\}`)

func NewRegistry(events []Event) (*Registry, error) {
	r := &Registry{events: make(map[string]Event, len(events))}
	for _, ev := range events {
		if _, dup := r.events[ev.Name]; dup {
			return nil, fmt.Errorf("duplicate workflow event %q", ev.Name)
		}
		r.events[ev.Name] = ev
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Event looks up a workflow event by name.
func (r *Registry) Event(name string) (Event, bool) {
	ev, ok := r.events[name]
	return ev, ok
}

// Validate checks every placeholder in every template against the Vars
// fields and every severity against the known set.
func (r *Registry) Validate() error {
	fields := varsFields()
	for name, ev := range r.events {
		for role, tmpl := range ev.Templates {
			switch tmpl.Severity {
			case model.SeverityInfo, model.SeverityWarning, model.SeverityCritical:
			default:
				return fmt.Errorf("event %s role %s: unknown severity %q", name, role, tmpl.Severity)
			}
			for _, text := range []string{tmpl.Title, tmpl.Message, tmpl.Link} {
				for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
					if !fields[match[1]] {
						return fmt.Errorf("event %s role %s: unknown placeholder {%s}", name, role, match[1])
					}
				}
			}
		}
	}
	return nil
}

// Render substitutes {Field} placeholders from vars.
func (t Template) Render(vars Vars) (title, message, link string) {
	values := varsValues(vars)
	sub := func(text string) string {
		return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
			return values[strings.Trim(m, "{}")]
		})
	}
	return sub(t.Title), sub(t.Message), sub(t.Link)
}

func varsFields() map[string]bool {
	t := reflect.TypeOf(Vars{})
	fields := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields[t.Field(i).Name] = true
	}
	return fields
}

func varsValues(vars Vars) map[string]string {
	v := reflect.ValueOf(vars)
	t := v.Type()
	values := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		values[t.Field(i).Name] = v.Field(i).String()
	}
	return values
}
