package dbconn

import (
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys. Dashboards key off these exact names.
const (
	AttrDBSystem    = "db.system"
	AttrDBName      = "db.name"
	AttrDBVersion   = "db.version"
	AttrDBStatement = "db.statement"
	AttrDBInstance  = "db.instance"
)

// Operation kinds passed to the span manager.
const (
	kindConnection  = "connection"
	kindQuery       = "sql.query"
	kindTransaction = "transaction"
)

// numericReplacement keeps the character before a numeric literal.
const numericReplacement = "${1}?"

// Regex patterns for query sanitization.
var (
	// stringLiteralRegex matches single-quoted strings, handling escaped quotes.
	// Example matches: 'hello', 'it\'s', 'foo''bar'
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)

	// numericLiteralRegex matches numeric literals (integers and floats).
	// The leading group keeps placeholders such as $1 and ?2 intact and is
	// put back by numericReplacement.
	numericLiteralRegex = regexp.MustCompile(`(^|[^$?\w])\d+\.?\d*\b`)

	// hexLiteralRegex matches hex literals.
	hexLiteralRegex = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)

	// bindStringRegex matches JSON strings in a rendered bind list.
	bindStringRegex = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)
)

// DefaultQuerySanitizer is a basic query sanitizer that replaces
// literal values with placeholders to prevent sensitive data from
// appearing in traces.
//
// What it sanitizes:
//   - String literals: 'john' → '?'
//   - Numeric literals: 123, 45.67 → ?
//   - Hex literals: 0xDEADBEEF → ?
//
// Example:
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE id = 123")
//	// returns "SELECT * FROM users WHERE id = ?"
//
// Rendered bind lists are masked too:
//
//	DefaultQuerySanitizer(`SELECT * FROM users WHERE name = ? -- binds: ["john"]`)
//	// returns `SELECT * FROM users WHERE name = ? -- binds: ["?"]`
//
// Note: This is a simple regex-based implementation. For production use
// with complex queries, consider using a proper SQL parser.
func DefaultQuerySanitizer(query string) string {
	text, binds, hasBinds := strings.Cut(query, bindsMarker)

	text = stringLiteralRegex.ReplaceAllString(text, "'?'")
	text = numericLiteralRegex.ReplaceAllString(text, numericReplacement)
	text = hexLiteralRegex.ReplaceAllString(text, "?")
	if !hasBinds {
		return text
	}

	binds = bindStringRegex.ReplaceAllString(binds, `"?"`)
	binds = numericLiteralRegex.ReplaceAllString(binds, numericReplacement)
	return text + bindsMarker + binds
}

// baseAttributes returns the attributes shared by every span of a connection.
// db.name and db.version are omitted until the probe has run.
func (cfg *config) baseAttributes(info ConnectionInfo) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if cfg.Dialect.System != "" {
		attrs = append(attrs, attribute.String(AttrDBSystem, cfg.Dialect.System))
	}
	if info.CurrentDatabase != "" {
		attrs = append(attrs, attribute.String(AttrDBName, info.CurrentDatabase))
	}
	if info.Version != "" {
		attrs = append(attrs, attribute.String(AttrDBVersion, info.Version))
	}
	if cfg.InstanceName != "" {
		attrs = append(attrs, attribute.String(AttrDBInstance, cfg.InstanceName))
	}
	return attrs
}

// statement returns the text recorded for query.
func (cfg *config) statement(query string) string {
	if cfg.QuerySanitizer != nil {
		return cfg.QuerySanitizer(query)
	}
	return query
}

// queryAttributes returns attributes for query spans.
func (cfg *config) queryAttributes(info ConnectionInfo, statement string) []attribute.KeyValue {
	attrs := cfg.baseAttributes(info)
	if !cfg.DisableQuery && statement != "" {
		attrs = append(attrs, attribute.String(AttrDBStatement, statement))
	}
	return attrs
}
