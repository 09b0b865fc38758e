package repository

import (
	"cmp"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
)

const maxPageLimit = 1000

type rowPredicate func(models.Row) bool

// rowSearch is a validated RowQuery. Stages run in a fixed order:
// flatten, filter, count, stable sort, paginate.
type rowSearch struct {
	predicates []rowPredicate
	sort       []models.SortField
}

func validatePage(page, limit int) error {
	if page < 1 {
		return apperr.Validation("page", "must be >= 1")
	}
	if limit < 1 || limit > maxPageLimit {
		return apperr.Validation("limit", fmt.Sprintf("must be between 1 and %d", maxPageLimit))
	}
	return nil
}

func compileRowQuery(q models.RowQuery) (*rowSearch, error) {
	rs := &rowSearch{}

	columns := make([]string, 0, len(q.Filter))
	for col := range q.Filter {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for _, col := range columns {
		if col == "" {
			return nil, apperr.Validation("filter", "empty column name")
		}
		pred, err := columnPredicate(col, q.Filter[col])
		if err != nil {
			return nil, err
		}
		rs.predicates = append(rs.predicates, pred)
	}

	for _, sf := range q.Sort {
		if sf.Column == "" {
			return nil, apperr.Validation("sort", "empty column name")
		}
		if sf.Direction != 1 && sf.Direction != -1 {
			return nil, apperr.Validation("sort", fmt.Sprintf("direction for %q must be 1 or -1", sf.Column))
		}
	}
	rs.sort = q.Sort
	return rs, nil
}

func columnPredicate(col string, want any) (rowPredicate, error) {
	if n, ok := toNumber(want); ok {
		return func(row models.Row) bool {
			got, ok := toNumber(row[col])
			return ok && got == n
		}, nil
	}

	switch v := want.(type) {
	case bool:
		return func(row models.Row) bool {
			got, ok := row[col].(bool)
			return ok && got == v
		}, nil
	case string:
		re, err := regexp.Compile("(?i)" + v)
		if err != nil {
			return nil, apperr.Validationf("filter", err, "invalid pattern for %q", col)
		}
		return func(row models.Row) bool {
			got, ok := row[col].(string)
			return ok && re.MatchString(got)
		}, nil
	}
	return nil, apperr.Validation("filter", fmt.Sprintf("unsupported value type %T for %q", want, col))
}

func (rs *rowSearch) matches(row models.Row) bool {
	for _, pred := range rs.predicates {
		if !pred(row) {
			return false
		}
	}
	return true
}

// run returns the requested page and the number of rows that matched before
// pagination. rows is not modified.
func (rs *rowSearch) run(rows []models.Row, page, limit int) ([]models.Row, int) {
	matched := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		if rs.matches(row) {
			matched = append(matched, row)
		}
	}
	total := len(matched)

	if len(rs.sort) > 0 {
		slices.SortStableFunc(matched, rs.compare)
	}

	skip := (page - 1) * limit
	if skip >= total {
		return []models.Row{}, total
	}
	end := min(skip+limit, total)
	return matched[skip:end], total
}

func (rs *rowSearch) compare(a, b models.Row) int {
	for _, sf := range rs.sort {
		if c := compareValues(a[sf.Column], b[sf.Column]); c != 0 {
			return c * sf.Direction
		}
	}
	return 0
}

// typeRank orders mixed-type columns: missing/null, numbers, strings, booleans, other.
func typeRank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := toNumber(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case bool:
		return 3
	}
	return 4
}

func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 1:
		na, _ := toNumber(a)
		nb, _ := toNumber(b)
		return cmp.Compare(na, nb)
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
