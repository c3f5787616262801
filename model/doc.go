// Package model defines the normalized language-model boundary used by the
// manager policy, the intent classifier and the specialist agents. Provider
// implementations live in sub-packages (openai, anthropic) so callers only
// depend on the small Model interface and the wiring layer picks a vendor.
package model
