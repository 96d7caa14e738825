package usecase

import (
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"bargain-backend/model"
	"bargain-backend/pkg/phrasebook"
	"bargain-backend/pkg/predictor"
)

const (
	AcceptThreshold  = 0.6
	OverrideAgeDays  = 7
	DefaultAgeDays   = 10
	priceScale       = 1000.0
	ageScale         = 30.0
	messageScale     = 100.0
	floorMarkupRatio = "1.05"
	defaultFloorRate = "0.85"
)

var (
	greetingPattern   = regexp.MustCompile(`(?i)\b(hi|hello|hey|greetings)\b`)
	complimentPattern = regexp.MustCompile(`(?i)\b(good|nice|great|love|amazing|beautiful|cool)\b`)
	complaintPattern  = regexp.MustCompile(`(?i)\b(expensive|high|costly|pricey)\b`)

	floorMarkup = decimal.RequireFromString(floorMarkupRatio)
	floorRate   = decimal.RequireFromString(defaultFloorRate)
	two         = decimal.NewFromInt(2)
)

// AcceptancePredictor scores an offer between 0 and 1.
type AcceptancePredictor interface {
	Predict(predictor.Features) float64
}

// PriceContext is what the policy knows about the product.
type PriceContext struct {
	ProductID    string
	ProductName  string
	CurrentPrice decimal.Decimal
	FloorPrice   decimal.Decimal
	AgeDays      int
}

type Offer struct {
	Message       string
	ProposedPrice *decimal.Decimal
	Context       PriceContext
}

// Evaluation is the policy output. Record is set only when a concrete offer was judged.
type Evaluation struct {
	Decision model.Decision
	Record   *model.TrainingRecord
}

type intentRule struct {
	name    string
	match   func(Offer) bool
	respond func(Offer) Evaluation
}

// Policy decides how the agent answers a single buyer turn.
// Rules are evaluated in order and the first match wins.
type Policy struct {
	predictor AcceptancePredictor
	phrases   *phrasebook.Phrasebook
	rules     []intentRule
}

func NewPolicy(p AcceptancePredictor, phrases *phrasebook.Phrasebook) *Policy {
	pol := &Policy{predictor: p, phrases: phrases}
	pol.rules = []intentRule{
		{name: "greeting", match: matches(greetingPattern), respond: pol.reply(phrasebook.Greeting)},
		{name: "compliment", match: matches(complimentPattern), respond: pol.reply(phrasebook.Compliment)},
		{name: "no_price", match: withoutPrice, respond: pol.askForPrice},
		{name: "offer", match: func(Offer) bool { return true }, respond: pol.judgeOffer},
	}
	return pol
}

// Rules returns the rule names in evaluation order.
func (p *Policy) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.name
	}
	return names
}

func (p *Policy) Evaluate(o Offer) Evaluation {
	for _, r := range p.rules {
		if r.match(o) {
			return r.respond(o)
		}
	}
	// unreachable: the last rule always matches
	return Evaluation{}
}

func matches(re *regexp.Regexp) func(Offer) bool {
	return func(o Offer) bool { return re.MatchString(o.Message) }
}

func withoutPrice(o Offer) bool {
	return o.ProposedPrice == nil || !o.ProposedPrice.IsPositive()
}

func (p *Policy) reply(c phrasebook.Category) func(Offer) Evaluation {
	return func(Offer) Evaluation {
		return Evaluation{Decision: model.Decision{ResponseMessage: p.phrases.Render(c, phrasebook.Vars{})}}
	}
}

func (p *Policy) askForPrice(o Offer) Evaluation {
	if complaintPattern.MatchString(o.Message) {
		return p.reply(phrasebook.PriceHigh)(o)
	}
	msg := p.phrases.Render(phrasebook.AskPrice, phrasebook.Vars{Product: o.Context.ProductName})
	return Evaluation{Decision: model.Decision{ResponseMessage: msg}}
}

func (p *Policy) judgeOffer(o Offer) Evaluation {
	c := o.Context
	proposed := *o.ProposedPrice

	prob := p.predictor.Predict(offerFeatures(c.CurrentPrice, c.FloorPrice, proposed, float64(c.AgeDays), o.Message))
	accepted := prob > AcceptThreshold
	if c.AgeDays > OverrideAgeDays && proposed.GreaterThanOrEqual(c.FloorPrice) {
		accepted = true
	}

	var (
		counter  decimal.Decimal
		category phrasebook.Category
	)
	switch {
	case accepted:
		counter, category = proposed, phrasebook.Accept
	case proposed.LessThan(c.FloorPrice):
		counter, category = c.FloorPrice.Mul(floorMarkup).Round(2), phrasebook.RejectLow
	default:
		counter, category = c.CurrentPrice.Add(proposed).Div(two).Round(2), phrasebook.Counter
	}

	msg := p.phrases.Render(category, phrasebook.Vars{Price: counter.StringFixed(2), Product: c.ProductName})
	return Evaluation{
		Decision: model.Decision{Accepted: accepted, CounterOffer: &counter, ResponseMessage: msg},
		Record: &model.TrainingRecord{
			ProductID:       c.ProductID,
			ProductPrice:    c.CurrentPrice,
			ProductMinPrice: c.FloorPrice,
			ProposedPrice:   proposed,
			UserMessage:     o.Message,
			AgentMessage:    msg,
			Accepted:        accepted,
		},
	}
}

// offerFeatures scales an offer into the predictor's input vector.
func offerFeatures(current, floor, proposed decimal.Decimal, ageDays float64, message string) predictor.Features {
	return predictor.Features{
		current.InexactFloat64() / priceScale,
		floor.InexactFloat64() / priceScale,
		proposed.InexactFloat64() / priceScale,
		ageDays / ageScale,
		float64(utf8.RuneCountInString(message)) / messageScale,
	}
}

// DefaultFloor is the floor used when a product has none.
func DefaultFloor(price decimal.Decimal) decimal.Decimal {
	return price.Mul(floorRate)
}
