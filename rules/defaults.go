package rules

import (
	"sync"

	"github.com/fps2me/fpsqr/identifier"
)

// DefaultRules returns the built-in classification rules in evaluation order:
// email, FPS id, Hong Kong mobile, mainland mobile.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID:         "email",
			Name:       "Contains @",
			Expression: `value.contains("@")`,
			Kind:       identifier.KindEmail,
			Priority:   10,
			Active:     true,
		},
		{
			ID:         "fps-id",
			Name:       "Nine digits",
			Expression: `value.matches("^[0-9]{9}$")`,
			Kind:       identifier.KindFPSID,
			Priority:   20,
			Active:     true,
		},
		{
			ID:         "hk-mobile",
			Name:       "Eight digits",
			Expression: `value.matches("^[0-9]{8}$")`,
			Kind:       identifier.KindMobile,
			Priority:   30,
			Active:     true,
		},
		{
			ID:         "mainland-mobile",
			Name:       "+86- and eleven digits",
			Expression: `value.matches("^[+]86-[0-9]{11}$")`,
			Kind:       identifier.KindMobile,
			Priority:   40,
			Active:     true,
		},
	}
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide engine built from DefaultRules.
// Panics if the built-in rules fail to compile.
func Default() *Engine {
	defaultOnce.Do(func() {
		en, err := NewEngineWithRules(DefaultRules())
		if err != nil {
			panic("rules: built-in rules: " + err.Error())
		}
		defaultEngine = en
	})
	return defaultEngine
}

// Classify classifies a normalized value with the default engine
func Classify(normalized string) identifier.Kind {
	return Default().Classify(normalized)
}
