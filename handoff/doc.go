// Package handoff routes each inbound prompt to the best-fitting domain
// specialist. One cheap classification call decides whether the active
// specialist keeps the conversation or hands it off; a handoff carries a
// bounded window of prior turns fixed at transfer time. Responses go
// straight from specialist to user - there is no planning round on this
// path, which is what keeps its per-turn cost at one specialist
// invocation plus one classification.
package handoff
