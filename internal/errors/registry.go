package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (A100-A199)
	// ============================================

	"A101": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Detail:     "No autoroute.json or autoroute.toml was found in the directory or any parent.",
		Suggestion: "Create autoroute.toml, or pass --controllers to run without a config file",
	},
	"A102": {
		Category: CategoryConfig,
		Message:  "Configuration file is invalid",
		Detail:   "The configuration file could not be parsed.",
	},
	"A103": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},
	"A104": {
		Category:   CategoryConfig,
		Message:    "Invalid environment override",
		Detail:     "An AUTOROUTE_* environment variable could not be applied to the configuration.",
		Suggestion: "Check the variable's type, e.g. AUTOROUTE_SERVER_ADDR=:8080",
	},

	// ============================================
	// Build Errors (A200-A299)
	// ============================================

	"A201": {
		Category:   CategoryBuild,
		Message:    "Controller discovery failed",
		Detail:     "The controllers directory could not be walked.",
		Suggestion: "Check that the controllers path exists and is readable",
	},
	"A202": {
		Category: CategoryBuild,
		Message:  "Controller could not be loaded",
	},
	"A203": {
		Category:   CategoryBuild,
		Message:    "Route conflict",
		Detail:     "Two controller files that are not extension variants of each other map to the same route.",
		Suggestion: "Rename or remove one of the files",
	},
	"A204": {
		Category: CategoryBuild,
		Message:  "Invalid glob pattern",
	},
	"A205": {
		Category:   CategoryBuild,
		Message:    "Controller is not registered",
		Detail:     "A .go controller was found on disk but no registration for it was compiled in.",
		Suggestion: "Run 'autoroute gen' and rebuild",
	},
	"A206": {
		Category:   CategoryBuild,
		Message:    "Ambiguous action function",
		Detail:     "A controller defines both the short and the prefixed function for one action.",
		Suggestion: "Keep only one of the two functions",
	},
	"A207": {
		Category:   CategoryBuild,
		Message:    "Go module not found",
		Detail:     "Generated code needs the module path of the controllers directory.",
		Suggestion: "Run 'go mod init' in the project root",
	},
	"A208": {
		Category: CategoryBuild,
		Message:  "Invalid actions map",
	},

	// ============================================
	// Serve Errors (A300-A399)
	// ============================================

	"A301": {
		Category: CategoryServe,
		Message:  "Server failed",
	},
	"A302": {
		Category: CategoryServe,
		Message:  "Unknown router backend",
	},
	"A303": {
		Category: CategoryServe,
		Message:  "Upload store setup failed",
	},
	"A304": {
		Category: CategoryServe,
		Message:  "Shutdown did not complete",
		Detail:   "Requests were still in flight when the shutdown timeout expired.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
