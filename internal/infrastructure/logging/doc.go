// Package logging is the structured logger of the graylogic-hass service.
//
// Logger is a thin wrapper around log/slog. Every entry carries
// service=graylogic-hass and the build version; the service adds the site
// id once the configuration is loaded. Packages such as homeassistant,
// mqtt, instance and discovery accept any value with Debug/Info/Warn/Error
// methods, so a *Logger can be passed to their SetLogger directly.
//
// Settings come from the logging section of config.yaml:
//
//	logging:
//	  level: info     # debug, info, warn, error
//	  format: json    # json, text
//	  output: stdout  # stdout, stderr
//
// Typical wiring:
//
//	log := logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
//	client.SetLogger(log.Component("homeassistant").With("server", id))
//
// NewWithWriter sends output to any io.Writer, and Discard drops it; both
// exist mainly for tests.
//
// Access tokens and password hashes are never logged. Server ids and base
// URLs are.
package logging
