package autoroute

import (
	"fmt"
	"net/http"
	"strings"
)

// Verb is one of the HTTP verbs an action can be bound to.
type Verb string

const (
	VerbHead   Verb = "head"
	VerbGet    Verb = "get"
	VerbPost   Verb = "post"
	VerbPut    Verb = "put"
	VerbPatch  Verb = "patch"
	VerbDelete Verb = "delete"
)

var verbMethods = map[Verb]string{
	VerbHead:   http.MethodHead,
	VerbGet:    http.MethodGet,
	VerbPost:   http.MethodPost,
	VerbPut:    http.MethodPut,
	VerbPatch:  http.MethodPatch,
	VerbDelete: http.MethodDelete,
}

// ParseVerb parses s without regard to case.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("autoroute: unknown verb %q", s)
	}
	return v, nil
}

// Valid reports whether v is a known verb.
func (v Verb) Valid() bool {
	_, ok := verbMethods[v]
	return ok
}

// Method returns the HTTP method for v, e.g. "GET".
func (v Verb) Method() string {
	return verbMethods[v]
}

// Singular reports whether actions bound to v are also registered on the
// "/:id" route. Only post is collection-only.
func (v Verb) Singular() bool {
	return v.Valid() && v != VerbPost
}

func (v Verb) String() string { return string(v) }

// ActionVerb binds an action name to a verb.
type ActionVerb struct {
	Action string `json:"action" toml:"action"`
	Verb   Verb   `json:"verb" toml:"verb"`
}

// ActionsMap is an ordered, immutable mapping from action names to verbs.
// Its order is the order in which a controller's actions are registered.
// The zero value is empty.
type ActionsMap struct {
	entries []ActionVerb
	index   map[string]Verb
}

// DefaultActions maps the conventional action names to their verbs.
var DefaultActions = MustActionsMap(
	ActionVerb{"exists", VerbHead},
	ActionVerb{"read", VerbGet},
	ActionVerb{"create", VerbPost},
	ActionVerb{"update", VerbPut},
	ActionVerb{"partial", VerbPatch},
	ActionVerb{"destroy", VerbDelete},
)

// NewActionsMap builds an ActionsMap from pairs, in order. It fails on an
// empty or repeated action name and on an unknown verb.
func NewActionsMap(pairs ...ActionVerb) (ActionsMap, error) {
	m := ActionsMap{
		entries: make([]ActionVerb, 0, len(pairs)),
		index:   make(map[string]Verb, len(pairs)),
	}
	for _, p := range pairs {
		if p.Action == "" {
			return ActionsMap{}, fmt.Errorf("autoroute: empty action name")
		}
		v, err := ParseVerb(string(p.Verb))
		if err != nil {
			return ActionsMap{}, fmt.Errorf("action %q: %w", p.Action, err)
		}
		if _, dup := m.index[p.Action]; dup {
			return ActionsMap{}, fmt.Errorf("autoroute: action %q mapped twice", p.Action)
		}
		m.entries = append(m.entries, ActionVerb{Action: p.Action, Verb: v})
		m.index[p.Action] = v
	}
	return m, nil
}

// MustActionsMap is like NewActionsMap but panics on error.
func MustActionsMap(pairs ...ActionVerb) ActionsMap {
	m, err := NewActionsMap(pairs...)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseActionsMap builds an ActionsMap from "action=verb" strings.
func ParseActionsMap(specs []string) (ActionsMap, error) {
	pairs := make([]ActionVerb, 0, len(specs))
	for _, s := range specs {
		action, verb, ok := strings.Cut(s, "=")
		if !ok {
			return ActionsMap{}, fmt.Errorf("autoroute: action %q: want action=verb", s)
		}
		pairs = append(pairs, ActionVerb{Action: strings.TrimSpace(action), Verb: Verb(verb)})
	}
	return NewActionsMap(pairs...)
}

// Verb returns the verb bound to action.
func (m ActionsMap) Verb(action string) (Verb, bool) {
	v, ok := m.index[action]
	return v, ok
}

// Entries returns the pairs in registration order.
func (m ActionsMap) Entries() []ActionVerb {
	out := make([]ActionVerb, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of actions.
func (m ActionsMap) Len() int { return len(m.entries) }
