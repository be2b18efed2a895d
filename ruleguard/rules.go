// Package gorules holds the go-ruleguard checks run by gocritic over the
// module.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)
}

// printing: only cmd/ writes to stdout directly.
func printing(m dsl.Matcher) {
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `log.Printf($*_)`, `log.Println($*_)`).
		Where(!m.File().PkgPath.Matches(`/cmd/`)).
		Report(`use logging.Ctx(ctx) or logging.WithComponent instead of printing`)
}

// errorWrapping: a trailing error argument is wrapped with %w.
func errorWrapping(m dsl.Matcher) {
	m.Match(`fmt.Errorf($f, $*_, $err)`).
		Where(m["err"].Type.Is(`error`) && !m["f"].Text.Matches(`%w`)).
		Report(`wrap $err with %w so callers can match it`)
}

// requestContext flags handlers that drop the request context.
func requestContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().PkgPath.Matches(`/internal/api/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`use r.Context() so cancellation and request ids propagate`)
}

// temperature: briefing and compare requests pin the sampling temperature.
func temperature(m dsl.Matcher) {
	m.Match(`llm.ChatRequest{$*fields}`).
		Where(m.File().PkgPath.Matches(`/internal/domain/(briefing|compare)`) && !m["fields"].Text.Matches(`Temperature`)).
		Report(`set Temperature explicitly on briefing and compare requests`)
}
