// Package phrasebook holds the agent's canned replies.
package phrasebook

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Category string

const (
	Greeting       Category = "greeting"
	Compliment     Category = "compliment"
	PriceHigh      Category = "price_high"
	AskPrice       Category = "ask_price"
	RejectLow      Category = "reject_low"
	Accept         Category = "accept"
	Counter        Category = "counter"
	Fallback       Category = "fallback"
	Unavailable    Category = "unavailable"
	InvalidRequest Category = "invalid_request"
	NotFound       Category = "not_found"
)

// Categories lists every category the agent renders.
var Categories = []Category{
	Greeting, Compliment, PriceHigh, AskPrice, RejectLow, Accept, Counter,
	Fallback, Unavailable, InvalidRequest, NotFound,
}

//go:embed phrasebook.yaml
var defaultTemplates []byte

// Picker chooses an index in [0,n).
type Picker interface {
	Intn(n int) int
}

// Vars are the placeholder values for Render.
type Vars struct {
	Price   string
	Product string
}

type Phrasebook struct {
	templates map[Category][]string
	picker    Picker
}

// New parses the embedded templates.
func New(picker Picker) (*Phrasebook, error) {
	return Parse(defaultTemplates, picker)
}

// Parse builds a phrasebook from YAML. Every known category needs at least one template.
func Parse(data []byte, picker Picker) (*Phrasebook, error) {
	raw := map[string][]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode phrasebook: %w", err)
	}

	templates := make(map[Category][]string, len(raw))
	for k, v := range raw {
		templates[Category(k)] = v
	}
	for _, c := range Categories {
		if len(templates[c]) == 0 {
			return nil, fmt.Errorf("phrasebook category %q has no templates", c)
		}
	}

	if picker == nil {
		picker = NewSeededPicker(1)
	}
	return &Phrasebook{templates: templates, picker: picker}, nil
}

// Templates returns the raw templates of a category.
func (p *Phrasebook) Templates(c Category) []string {
	return append([]string(nil), p.templates[c]...)
}

// Render picks one template of the category and fills in the placeholders.
func (p *Phrasebook) Render(c Category, vars Vars) string {
	list := p.templates[c]
	if len(list) == 0 {
		return ""
	}
	tmpl := list[p.picker.Intn(len(list))]
	return strings.NewReplacer("{price}", vars.Price, "{product}", vars.Product).Replace(tmpl)
}

// lockedPicker makes a math/rand source safe for concurrent turns.
type lockedPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeededPicker(seed int64) Picker {
	return &lockedPicker{rng: rand.New(rand.NewSource(seed))}
}

func (l *lockedPicker) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

// FixedPicker always returns the same index, clamped to the list length.
type FixedPicker int

func (f FixedPicker) Intn(n int) int {
	if int(f) >= n {
		return n - 1
	}
	if f < 0 {
		return 0
	}
	return int(f)
}
