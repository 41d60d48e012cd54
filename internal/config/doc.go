// Package config loads autoroute.toml (or autoroute.json) for the CLI.
//
// # Configuration File Structure
//
//	actions = ["exists=head", "read=get", "create=post", "update=put", "partial=patch", "destroy=delete"]
//	meta = ["method", "userAgent"]
//
//	[controllers]
//	dir = "controllers"
//	ignore = ["**/*_test.go", "**/autoroute_gen.go"]
//
//	[server]
//	addr = ":3000"
//	router = "chi"
//	shutdown_timeout = "15s"
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[upload]
//	max_body_size = "10MB"
//	store = "disk"
//	dir = ".data/uploads"
//
//	[metrics]
//	enabled = true
//
//	[inspect]
//	enabled = true
//
// Every field can be overridden from the environment with the AUTOROUTE_
// prefix followed by the section and field name, e.g. AUTOROUTE_SERVER_ADDR
// or AUTOROUTE_UPLOAD_MAX_BODY_SIZE.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
