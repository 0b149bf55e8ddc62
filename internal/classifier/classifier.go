// Package classifier maps module names to energy types.
package classifier

import (
	"regexp"

	"github.com/tejusbharadwaj/smardexporter/internal/models"
)

// Rule tags every module name matching Pattern with Type.
type Rule struct {
	Pattern *regexp.Regexp
	Type    models.EnergyType
}

// DefaultRules is evaluated top to bottom, first match wins. Patterns are
// anchored at the start of the name only.
var DefaultRules = []Rule{
	{Pattern: regexp.MustCompile(`^Pumpspeicher$`), Type: models.EnergyNeutral},
	{
		Pattern: regexp.MustCompile(`^(?:Wind Offshore|Wind Onshore|Wasserkraft|Sonstige Erneuerbare|Photovoltaik|Biomasse)`),
		Type:    models.EnergyRenewable,
	},
	{
		Pattern: regexp.MustCompile(`^(?:Kernenergie|Steinkohle|Braunkohle|Sonstige Konventionelle|Erdgas)`),
		Type:    models.EnergyConventional,
	},
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New returns a Classifier over rules. A nil table means DefaultRules.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the type of the first matching rule, or EnergyUnknown.
func (c *Classifier) Classify(moduleName string) models.EnergyType {
	for _, r := range c.rules {
		if r.Pattern.MatchString(moduleName) {
			return r.Type
		}
	}
	return models.EnergyUnknown
}
