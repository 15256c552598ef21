package sqldb

import (
	"strconv"
	"strings"
)

var PlaceholderPrefixForDBType = map[string]byte{
	"mysql": '?',
	"pgsql": '$',
}

// ReplaceStaticPlaceholders numbers each `?` with the dialect prefix: `$1`, `$2`, ...
// `??` is kept as-is. Question marks inside single-quoted literals are not touched
func ReplaceStaticPlaceholders(sql string, prefix byte) string {
	if prefix == '?' || prefix == 0 {
		return sql
	}
	var builder strings.Builder
	builder.Grow(len(sql) + 8)
	cnt := 1
	inLiteral := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			inLiteral = !inLiteral
			builder.WriteByte(c)
		case inLiteral || c != '?':
			builder.WriteByte(c)
		case i+1 < len(sql) && sql[i+1] == '?':
			builder.WriteString("??")
			i++
		default:
			builder.WriteByte(prefix)
			builder.WriteString(strconv.Itoa(cnt))
			cnt++
		}
	}
	return builder.String()
}
