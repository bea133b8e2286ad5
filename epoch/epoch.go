// Package epoch decides which asynchronous response of an operation class is
// still authoritative. Requests are never aborted; a superseded response is
// recognized on arrival and its effects are skipped.
package epoch

// Token identifies one issued request of a class.
type Token uint64

// Guard issues tokens for one operation class. The zero value is ready to use.
// A Guard is owned by a single goroutine.
type Guard struct {
	latest Token
}

// Begin issues a token that supersedes every earlier one.
func (g *Guard) Begin() Token {
	g.latest++
	return g.latest
}

// IsCurrent reports whether t is the most recently issued token.
func (g *Guard) IsCurrent(t Token) bool {
	return t != 0 && t == g.latest
}

// Latest returns the most recently issued token, 0 if none.
func (g *Guard) Latest() Token {
	return g.latest
}

// Invalidate makes every outstanding token stale without issuing a new request.
func (g *Guard) Invalidate() {
	g.latest++
}
