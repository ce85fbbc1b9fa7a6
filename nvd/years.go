package nvd

import (
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/xerrors"
)

// YearRange is an inclusive interval of feed years.
type YearRange struct {
	Start int
	End   int
}

func (r YearRange) Years() []int {
	if r.End < r.Start {
		return nil
	}
	return lo.RangeFrom(r.Start, r.End-r.Start+1)
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// NewYearRange fills zero bounds with baseYear and currentYear, then validates the result.
func NewYearRange(start, end, baseYear, currentYear int) (YearRange, error) {
	if start == 0 {
		start = baseYear
	}
	if end == 0 {
		end = currentYear
	}

	r := YearRange{Start: start, End: end}
	switch {
	case r.Start > r.End:
		return YearRange{}, newError(ConfigurationError, 0, xerrors.Errorf("invalid year range %s: start is after end", r))
	case r.Start < baseYear:
		return YearRange{}, newError(ConfigurationError, 0, xerrors.Errorf("invalid year range %s: feeds start in %d", r, baseYear))
	case r.End > currentYear:
		return YearRange{}, newError(ConfigurationError, 0, xerrors.Errorf("invalid year range %s: %d is in the future", r, r.End))
	}
	return r, nil
}
