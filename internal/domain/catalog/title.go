package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// DeriveTitle builds a human-readable label from a step id, used when a
// step declares no description. "pkg:install:lazygit" becomes
// "Pkg Install Lazygit".
func DeriveTitle(id StepID) string {
	raw := id.String()
	raw = strings.NewReplacer(":", " ", "_", " ", "-", " ").Replace(raw)
	return titleCaser.String(raw)
}
