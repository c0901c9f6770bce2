// Package tables registers the built-in facility table types with the core
// registry. Import it for its side effects:
//
//	import _ "github.com/JonMunkholm/facilitytables/internal/core/tables"
//
// Each table type ships a default config that the engine falls back to when
// the stored config is missing or unusable, so every default here must
// validate.
package tables

// Registry groups.
const (
	GroupFacility = "facility"
	GroupService  = "service"
	GroupLand     = "land"
)
