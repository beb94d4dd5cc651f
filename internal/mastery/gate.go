package mastery

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abhisek/trainsched/internal/apperr"
)

// RequirementType identifies how a gate requirement is measured.
type RequirementType string

const (
	RequirementAccuracy    RequirementType = "accuracy"
	RequirementVolume      RequirementType = "volume"
	RequirementStreak      RequirementType = "streak"
	RequirementConsistency RequirementType = "consistency"
	RequirementTiming      RequirementType = "timing"
	RequirementComposite   RequirementType = "composite"
)

// Combinator joins the children of a composite requirement.
type Combinator string

const (
	CombineAll      Combinator = "all"
	CombineAny      Combinator = "any"
	CombineWeighted Combinator = "weighted"
)

// GateStatus is the derived state of a requirement.
type GateStatus string

const (
	GateLocked     GateStatus = "locked"
	GateInProgress GateStatus = "in_progress"
	GatePassed     GateStatus = "passed"
	GateFailed     GateStatus = "failed"
)

// Requirement describes one unlock condition over a set of atoms.
// An empty AtomIDs filter means every row passed to EvaluateGate.
type Requirement struct {
	ID          string          `json:"id,omitempty"`
	Type        RequirementType `json:"type" validate:"required,oneof=accuracy volume streak consistency timing composite"`
	Threshold   float64         `json:"threshold" validate:"gte=0"`
	AtomIDs     []string        `json:"atom_ids,omitempty" validate:"dive,required"`
	MinAttempts int             `json:"min_attempts,omitempty" validate:"gte=0"`
	WindowSize  int             `json:"window_size,omitempty" validate:"gte=0,lte=10"`
	CorrectOnly bool            `json:"correct_only,omitempty"`
	MaxAttempts int             `json:"max_attempts,omitempty" validate:"gte=0"`
	Combinator  Combinator      `json:"combinator,omitempty" validate:"omitempty,oneof=all any weighted"`
	Weights     []float64       `json:"weights,omitempty" validate:"dive,gte=0"`
	Children    []Requirement   `json:"children,omitempty"`
}

// Progress is the evaluated state of a requirement. It is never stored.
type Progress struct {
	RequirementID   string          `json:"requirement_id,omitempty"`
	Type            RequirementType `json:"type"`
	Status          GateStatus      `json:"status"`
	PercentComplete int             `json:"percent_complete"`
	Current         float64         `json:"current"`
	Required        float64         `json:"required"`
	Attempts        int             `json:"attempts"`
	Children        []Progress      `json:"children,omitempty"`
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a requirement tree for structural problems.
func (r *Requirement) Validate() error {
	if err := structValidator.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Invalid(fe.Namespace(), "failed %q constraint", fe.Tag())
		}
		return apperr.Invalid("requirement", "%v", err)
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return apperr.Invalid("threshold", "must be finite")
	}

	switch r.Type {
	case RequirementAccuracy, RequirementConsistency:
		if r.Threshold > 1 {
			return apperr.Invalid("threshold", "%s threshold must be in [0,1], got %v", r.Type, r.Threshold)
		}
	case RequirementTiming:
		if r.Threshold <= 0 {
			return apperr.Invalid("threshold", "timing threshold must be positive seconds")
		}
	case RequirementComposite:
		return r.validateComposite()
	}
	if len(r.Children) > 0 {
		return apperr.Invalid("children", "only composite requirements may have children")
	}
	return nil
}

func (r *Requirement) validateComposite() error {
	if len(r.Children) == 0 {
		return apperr.Invalid("children", "composite requirement has no children")
	}
	switch r.Combinator {
	case CombineAll, CombineAny:
	case CombineWeighted:
		if len(r.Weights) != len(r.Children) {
			return apperr.Invalid("weights", "have %d weights for %d children", len(r.Weights), len(r.Children))
		}
		total := 0.0
		for _, w := range r.Weights {
			total += w
		}
		if total <= 0 {
			return apperr.Invalid("weights", "must sum to a positive value")
		}
		if r.Threshold <= 0 || r.Threshold > 1 {
			return apperr.Invalid("threshold", "weighted threshold must be in (0,1], got %v", r.Threshold)
		}
	default:
		return apperr.Invalid("combinator", "composite requirement needs all, any or weighted")
	}
	for i := range r.Children {
		if err := r.Children[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateGate scores a requirement against a snapshot of mastery rows.
func EvaluateGate(req Requirement, rows []AtomMastery) (Progress, error) {
	if err := req.Validate(); err != nil {
		return Progress{}, err
	}
	return evaluate(req, rows), nil
}

func evaluate(req Requirement, rows []AtomMastery) Progress {
	if req.Type == RequirementComposite {
		return evaluateComposite(req, rows)
	}

	atoms := filterAtoms(req.AtomIDs, rows)
	p := Progress{RequirementID: req.ID, Type: req.Type, Required: req.Threshold}
	for _, m := range atoms {
		p.Attempts += m.TotalAttempts
	}
	if p.Attempts == 0 {
		p.Status = GateLocked
		return p
	}

	var passed bool
	switch req.Type {
	case RequirementAccuracy:
		sum, n := 0.0, 0
		for _, m := range atoms {
			if m.TotalAttempts == 0 {
				continue
			}
			if req.WindowSize > 0 {
				sum += windowAccuracy(m.RecentAttempts, req.WindowSize)
			} else {
				sum += m.Accuracy()
			}
			n++
		}
		p.Current = sum / float64(n)
		passed = p.Current >= req.Threshold && p.Attempts >= req.MinAttempts
		p.PercentComplete = min(percent(p.Current, req.Threshold), percent(float64(p.Attempts), float64(req.MinAttempts)))

	case RequirementVolume:
		for _, m := range atoms {
			if req.CorrectOnly {
				p.Current += float64(m.CorrectAttempts)
			} else {
				p.Current += float64(m.TotalAttempts)
			}
		}
		passed = p.Current >= req.Threshold
		p.PercentComplete = percent(p.Current, req.Threshold)

	case RequirementStreak:
		best := 0
		for _, m := range atoms {
			best = max(best, trailingRun(m.RecentAttempts))
		}
		p.Current = float64(best)
		passed = p.Current >= req.Threshold
		p.PercentComplete = percent(p.Current, req.Threshold)

	case RequirementConsistency:
		weakest := math.Inf(1)
		covered := true
		for _, m := range atoms {
			if m.TotalAttempts < req.MinAttempts {
				covered = false
			}
			if m.TotalAttempts == 0 {
				continue
			}
			weakest = math.Min(weakest, m.RecentAccuracy())
		}
		p.Current = weakest
		passed = covered && weakest >= req.Threshold
		p.PercentComplete = percent(weakest, req.Threshold)

	case RequirementTiming:
		sum, n := 0.0, 0
		for _, m := range atoms {
			if m.TotalAttempts == 0 {
				continue
			}
			sum += m.AvgTime
			n++
		}
		p.Current = sum / float64(n)
		passed = p.Current <= req.Threshold && p.Attempts >= req.MinAttempts
		if p.Current <= 0 {
			p.PercentComplete = 100
		} else {
			p.PercentComplete = percent(req.Threshold, p.Current)
		}
	}

	p.Status = settle(passed, req.MaxAttempts > 0 && p.Attempts >= req.MaxAttempts)
	if !passed && p.PercentComplete == 100 {
		p.PercentComplete = 99
	}
	return p
}

func evaluateComposite(req Requirement, rows []AtomMastery) Progress {
	p := Progress{RequirementID: req.ID, Type: req.Type, Required: req.Threshold}
	p.Children = make([]Progress, len(req.Children))

	locked, passedN, failedN := 0, 0, 0
	for i, child := range req.Children {
		cp := evaluate(child, rows)
		p.Children[i] = cp
		p.Attempts += cp.Attempts
		switch cp.Status {
		case GateLocked:
			locked++
		case GatePassed:
			passedN++
		case GateFailed:
			failedN++
		}
	}
	n := len(req.Children)
	if locked == n {
		p.Status = GateLocked
		return p
	}

	var passed, failed bool
	switch req.Combinator {
	case CombineAll:
		passed = passedN == n
		failed = failedN > 0
		sum := 0
		for _, cp := range p.Children {
			sum += cp.PercentComplete
		}
		p.Current = float64(passedN)
		p.Required = float64(n)
		p.PercentComplete = int(math.Round(float64(sum) / float64(n)))
	case CombineAny:
		passed = passedN > 0
		failed = failedN == n
		for _, cp := range p.Children {
			p.PercentComplete = max(p.PercentComplete, cp.PercentComplete)
		}
		p.Current = float64(passedN)
		p.Required = 1
	case CombineWeighted:
		total, score := 0.0, 0.0
		for i, cp := range p.Children {
			total += req.Weights[i]
			score += req.Weights[i] * float64(cp.PercentComplete) / 100
		}
		p.Current = score / total
		passed = p.Current >= req.Threshold
		p.PercentComplete = percent(p.Current, req.Threshold)
	}

	p.Status = settle(passed, failed)
	if !passed && p.PercentComplete == 100 {
		p.PercentComplete = 99
	}
	return p
}

func settle(passed, exhausted bool) GateStatus {
	switch {
	case passed:
		return GatePassed
	case exhausted:
		return GateFailed
	default:
		return GateInProgress
	}
}

// filterAtoms selects the rows named by ids. Named atoms without a row
// count as unattempted.
func filterAtoms(ids []string, rows []AtomMastery) []AtomMastery {
	if len(ids) == 0 {
		return rows
	}
	byID := make(map[string]AtomMastery, len(rows))
	for _, m := range rows {
		byID[m.AtomID] = m
	}
	out := make([]AtomMastery, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		} else {
			out = append(out, AtomMastery{AtomID: id, Level: LevelUnstarted})
		}
	}
	return out
}

func windowAccuracy(window []bool, size int) float64 {
	if len(window) > size {
		window = window[len(window)-size:]
	}
	if len(window) == 0 {
		return 0
	}
	correct := 0
	for _, ok := range window {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(window))
}

// percent returns round(min(100, current/required*100)) bounded to [0,100].
func percent(current, required float64) int {
	if required <= 0 {
		return 100
	}
	v := math.Round(math.Min(100, current/required*100))
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(v)
}
