package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// profileFieldMap caches JSON tag -> struct field index mappings
var (
	profileFieldMap     map[string]int
	profileFieldMapOnce sync.Once

	heightPattern = regexp.MustCompile(`^(\d+)'\s*(\d+(?:\.\d+)?)?"?$`)
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

var dobLayouts = []string{"2006-01-02", "Jan 2, 2006", "Jan. 2, 2006", "January 2, 2006", time.RFC3339}

func getProfileFieldMap() map[string]int {
	profileFieldMapOnce.Do(func() {
		t := reflect.TypeOf(FighterProfile{})
		profileFieldMap = make(map[string]int, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			tag := t.Field(i).Tag.Get("json")
			if tag == "" || tag == "-" {
				continue
			}
			name := strings.Split(tag, ",")[0]
			profileFieldMap[name] = i
		}
	})
	return profileFieldMap
}

// UnmarshalJSON accepts both native JSON and the string renderings that
// fighter stat pages use ("45%", "155 lbs.", `5' 11"`, "72\"", "--",
// "Jul 19, 1987"). Unparseable or placeholder values are left nil.
func (p *FighterProfile) UnmarshalJSON(data []byte) error {
	// Alias prevents infinite recursion
	type Alias FighterProfile
	a := (*Alias)(p)

	// Fast path: try standard unmarshal (works when all types match natively)
	if err := json.Unmarshal(data, a); err == nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	// The failed fast path leaves fields it touched allocated (a "--" stat
	// becomes &0), so decode again from an empty profile.
	*p = FighterProfile{}

	fieldMap := getProfileFieldMap()
	t := reflect.TypeOf(FighterProfile{})
	v := reflect.ValueOf(a).Elem()

	for key, rawVal := range raw {
		idx, ok := fieldMap[key]
		if !ok {
			continue
		}

		fv := v.Field(idx)
		if !fv.CanSet() {
			continue
		}

		ptr := reflect.New(fv.Type())
		if err := json.Unmarshal(rawVal, ptr.Interface()); err == nil {
			fv.Set(ptr.Elem())
			continue
		}

		if len(rawVal) > 1 && rawVal[0] == '"' {
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil {
				continue
			}
			coerceProfileField(fv, t.Field(idx).Tag.Get("flex"), s)
		}
	}

	return nil
}

// coerceProfileField converts a display string into the field's native type.
func coerceProfileField(fv reflect.Value, kind, s string) {
	s = strings.TrimSpace(s)
	if s == "" || s == "--" {
		return
	}

	switch kind {
	case "percent":
		if n, ok := ParsePercent(s); ok {
			fv.Set(reflect.ValueOf(&n))
		}
	case "height":
		if n, ok := ParseHeight(s); ok {
			fv.Set(reflect.ValueOf(&n))
		}
	case "number":
		if n, ok := parseLeadingNumber(s); ok {
			fv.Set(reflect.ValueOf(&n))
		}
	case "date":
		for _, layout := range dobLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				fv.Set(reflect.ValueOf(&d))
				return
			}
		}
	}
}

// ParsePercent parses "45%" or "45" as 0.45 and "0.45" as 0.45.
func ParsePercent(s string) (float64, bool) {
	hasPct := strings.HasSuffix(s, "%")
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil {
		return 0, false
	}
	if hasPct || n > 1 {
		n /= 100
	}
	return n, true
}

// ParseHeight parses `5' 11"` into inches. Plain numbers are taken as inches.
func ParseHeight(s string) (float64, bool) {
	if m := heightPattern.FindStringSubmatch(s); m != nil {
		feet, _ := strconv.ParseFloat(m[1], 64)
		inches := 0.0
		if m[2] != "" {
			inches, _ = strconv.ParseFloat(m[2], 64)
		}
		return feet*12 + inches, true
	}
	return parseLeadingNumber(s)
}

func parseLeadingNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
