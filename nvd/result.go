package nvd

import (
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
)

// Step names the stage of the pipeline a year reached.
type Step string

const (
	StepFetch Step = "fetch"
	StepSplit Step = "split"
)

// Result is the outcome of one year of a multi-year operation. Step is the stage
// that failed, or the last one that ran when Err is nil.
type Result struct {
	Year int
	Step Step
	Err  error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Results are ordered by year.
type Results []Result

func (rs Results) Failed() Results {
	return Results(lo.Filter(rs, func(r Result, _ int) bool {
		return !r.OK()
	}))
}

func (rs Results) SucceededYears() []int {
	return lo.FilterMap(rs, func(r Result, _ int) (int, bool) {
		return r.Year, r.OK()
	})
}

// Err folds every failed year into one error, or returns nil.
func (rs Results) Err() error {
	var errs *multierror.Error
	for _, r := range rs.Failed() {
		errs = multierror.Append(errs, r.Err)
	}
	return errs.ErrorOrNil()
}
