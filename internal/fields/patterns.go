package fields

import (
	"fmt"
	"regexp"
	"sort"
)

// Pattern binds a field key to a label expression. The expression must
// contain one capture group holding the value.
type Pattern struct {
	Key  Key
	Expr string
}

// DefaultPatterns mirrors the labels found on the supported document layout.
// Shape: <Label>[:\s]+(<capture>), matched case-insensitively.
var DefaultPatterns = []Pattern{
	{Key: CompanyName, Expr: `Company Name[:\s]+(.+)`},
	{Key: OrgNumber, Expr: `Org(?:anisation)? Number[:\s]+([\d\-]+)`},
	{Key: Address, Expr: `Address[:\s]+(.+)`},
	{Key: PostCode, Expr: `Post(?:al)? Code[:\s]+(\d+)`},
	{Key: City, Expr: `City[:\s]+(.+)`},
	{Key: NACECode, Expr: `NACE(?: Code)?[:\s]+([\d\.]+)`},
	{Key: Turnover, Expr: `Turnover 2024[:\s]+([\d\s,\.]+)`},
	{Key: Homepage, Expr: `(?:Website|Homepage)[:\s]+(\S+)`},
	{Key: EmployeeCount, Expr: `(?:Employees|Number of Employees)[:\s]+(\d+)`},
	{Key: Email, Expr: `Email[:\s]+([\w\.-]+@[\w\.-]+)`},
}

type compiledPattern struct {
	key Key
	re  *regexp.Regexp
}

func compilePatterns(patterns []Pattern) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	seen := make(map[Key]bool, len(patterns))
	for _, p := range patterns {
		if !knownKeys[p.Key] {
			return nil, fmt.Errorf("unknown field key: %q", p.Key)
		}
		if seen[p.Key] {
			return nil, fmt.Errorf("duplicate pattern for field %q", p.Key)
		}
		seen[p.Key] = true

		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern for field %q: %w", p.Key, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("pattern for field %q has no capture group", p.Key)
		}
		compiled = append(compiled, compiledPattern{key: p.Key, re: re})
	}
	return compiled, nil
}

// PatternsWithOverrides returns DefaultPatterns with the expressions of the
// given keys replaced. Keys absent from the defaults are appended in
// vocabulary order.
func PatternsWithOverrides(overrides map[string]string) ([]Pattern, error) {
	out := make([]Pattern, len(DefaultPatterns))
	copy(out, DefaultPatterns)

	index := make(map[Key]int, len(out))
	for i, p := range out {
		index[p.Key] = i
	}

	raw := make([]string, 0, len(overrides))
	for k := range overrides {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	for _, k := range raw {
		key, err := ParseKey(k)
		if err != nil {
			return nil, err
		}
		if i, ok := index[key]; ok {
			out[i].Expr = overrides[k]
			continue
		}
		out = append(out, Pattern{Key: key, Expr: overrides[k]})
	}
	return out, nil
}
