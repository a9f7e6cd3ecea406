// Package browserslist maps browser compatibility queries to the ECMAScript
// version every matched browser supports.
//
// Only explicit "<browser> <op> <version>" queries are understood. Usage
// statistics queries such as "> 0.5%" or "last 2 versions" need a
// caniuse database and are skipped.
package browserslist

import (
	"strconv"
	"strings"
)

// DefaultESVersion is returned when no query lowers the version.
const DefaultESVersion = 2018

// esVersions holds, per browser, the first version supporting ES2015,
// ES2016, ES2017 and ES2018 respectively.
var esVersions = map[string][4]float64{
	"chrome":  {51, 52, 57, 64},
	"edge":    {15, 15, 15, 79},
	"safari":  {10, 10.3, 11, 16.4},
	"firefox": {54, 54, 54, 78},
	"opera":   {38, 38, 44, 51},
	"samsung": {5, 5, 6.2, 8.2},
}

// Query is one parsed browser requirement.
type Query struct {
	Browser    string
	MinVersion float64
}

// Parse splits queries (which may themselves be comma or "or" separated)
// into the browser requirements it understands.
func Parse(queries []string) []Query {
	var out []Query
	for _, q := range queries {
		for _, part := range splitQuery(q) {
			if pq, ok := parseOne(part); ok {
				out = append(out, pq)
			}
		}
	}
	return out
}

func splitQuery(q string) []string {
	q = strings.ReplaceAll(q, " or ", ",")
	return strings.Split(q, ",")
}

func parseOne(part string) (Query, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(part)))
	if len(fields) < 2 || fields[0] == "not" {
		return Query{}, false
	}
	browser := fields[0]
	if browser == "ios_saf" || browser == "ios" {
		browser = "safari"
	}
	op, version := "", fields[1]
	if len(fields) >= 3 {
		op, version = fields[1], fields[2]
	}
	if i := strings.IndexByte(version, '-'); i > 0 {
		version = version[:i]
	}
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return Query{}, false
	}
	switch op {
	case "", ">=":
	case ">":
		v += 0.1
	case "<", "<=":
		v = 0
	default:
		return Query{}, false
	}
	return Query{Browser: browser, MinVersion: v}, true
}

// ESVersion returns the highest ECMAScript version all queried browsers
// support: 5, 2015, 2016, 2017 or 2018.
func ESVersion(queries []string) int {
	es := DefaultESVersion
	for _, q := range Parse(queries) {
		if q.Browser == "ie" || (q.Browser == "android" && q.MinVersion < 6) {
			return 5
		}
		versions, ok := esVersions[q.Browser]
		if !ok {
			continue
		}
		switch {
		case q.MinVersion < versions[0]:
			es = min(es, 5)
		case q.MinVersion < versions[1]:
			es = min(es, 2015)
		case q.MinVersion < versions[2]:
			es = min(es, 2016)
		case q.MinVersion < versions[3]:
			es = min(es, 2017)
		}
	}
	return es
}

// ESTarget formats an ECMAScript version as a target name ("es5", "es2017").
func ESTarget(version int) string {
	if version <= 5 {
		return "es5"
	}
	return "es" + strconv.Itoa(version)
}
