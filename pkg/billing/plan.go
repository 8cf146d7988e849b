package billing

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"
)

// PlanInterval is the billing period unit.
type PlanInterval string

const (
	IntervalDay   PlanInterval = "day"
	IntervalWeek  PlanInterval = "week"
	IntervalMonth PlanInterval = "month"
	IntervalYear  PlanInterval = "year"
)

// Plan is a Stripe price/interval combination a customer can subscribe to.
type Plan struct {
	ID              string       `yaml:"id"`
	Name            string       `yaml:"name"`
	Amount          int64        `yaml:"amount"`
	Currency        string       `yaml:"currency"`
	Interval        PlanInterval `yaml:"interval"`
	IntervalCount   int64        `yaml:"interval_count"`
	TrialPeriodDays int64        `yaml:"trial_period_days"`
	Active          bool         `yaml:"active"`
	UpdatedAt       time.Time    `yaml:"-"`
}

// IsFree reports a zero-amount plan.
func (p *Plan) IsFree() bool {
	return p.Amount == 0
}

// DisplayPrice renders e.g. "$9.99 / month" or "€90.00 / 3 months".
func (p *Plan) DisplayPrice() string {
	price := FormatAmount(p.Amount, p.Currency)
	if p.IntervalCount > 1 {
		return fmt.Sprintf("%s / %d %ss", price, p.IntervalCount, p.Interval)
	}
	return fmt.Sprintf("%s / %s", price, p.Interval)
}

// Validate checks the fields a catalogue entry must carry.
func (p *Plan) Validate() error {
	switch {
	case p.ID == "":
		return errors.Join(ErrInvalidPlan, errors.New("id is required"))
	case p.Amount < 0:
		return errors.Join(ErrInvalidPlan, fmt.Errorf("plan %s: negative amount", p.ID))
	case p.TrialPeriodDays < 0:
		return errors.Join(ErrInvalidPlan, fmt.Errorf("plan %s: negative trial days", p.ID))
	}
	if _, err := currency.ParseISO(p.Currency); err != nil {
		return errors.Join(ErrInvalidPlan, fmt.Errorf("plan %s: %w", p.ID, err))
	}
	switch p.Interval {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
	default:
		return errors.Join(ErrInvalidPlan, fmt.Errorf("plan %s: unknown interval %q", p.ID, p.Interval))
	}
	return nil
}

var printer = message.NewPrinter(language.English)

// FormatAmount formats an amount in minor units, e.g. 999 "usd" as "$9.99".
// Unknown currencies fall back to the amount and upper-cased code.
func FormatAmount(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%d %s", minor, strings.ToUpper(code))
	}
	scale, _ := currency.Standard.Rounding(unit)
	value := float64(minor) / math.Pow10(scale)
	return printer.Sprintf("%v%v", currency.Symbol(unit), number.Decimal(value, number.Scale(scale)))
}

type planCatalog struct {
	Plans []Plan `yaml:"plans"`
}

// ParsePlanCatalog reads a YAML catalogue:
//
//	plans:
//	  - id: pro-monthly
//	    name: Pro
//	    amount: 1900
//	    currency: usd
//	    interval: month
//	    active: true
//
// IntervalCount defaults to 1.
func ParsePlanCatalog(r io.Reader) ([]Plan, error) {
	var catalog planCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return nil, errors.Join(ErrInvalidPlan, err)
	}

	seen := make(map[string]bool, len(catalog.Plans))
	for i := range catalog.Plans {
		p := &catalog.Plans[i]
		p.Currency = strings.ToLower(p.Currency)
		if p.IntervalCount == 0 {
			p.IntervalCount = 1
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, errors.Join(ErrInvalidPlan, fmt.Errorf("duplicate plan id %s", p.ID))
		}
		seen[p.ID] = true
	}
	return catalog.Plans, nil
}
