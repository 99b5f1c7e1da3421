// Package config builds the startup configuration of agenda.
//
// Sources apply in order: built-in defaults, an optional YAML file, the
// process environment (optionally seeded from a .env file) and finally the
// command line flags set by the caller. Secrets (LLM_API_KEY,
// GOOGLE_CLIENT_SECRET, GOOGLE_REFRESH_TOKEN) are only read from the
// environment.
//
// Example file:
//
//	server:
//	  port: 3000
//	  request_timeout: 60s
//	agent:
//	  provider: openai
//	  model: gpt-4o-mini
//	  date_context: true
//	calendar:
//	  id: primary
//	  time_zone: America/Sao_Paulo
package config
