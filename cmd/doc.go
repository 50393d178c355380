// Package cmd provides the docsman command-line interface.
//
// # Available Commands
//
//   - serve: serve a documentation directory with live reload
//   - legend: print the Markdown files the navigation legend lists
//   - version: show build information
//
// Running docsman with a path and no command is the same as serve.
//
// # Command Examples
//
//	docsman ./docs
//	docsman serve ./docs --host 127.0.0.1 --port 3000
//	docsman serve ./docs --autoreload=false
//	docsman legend ./docs -o yaml
//	docsman version --format json
//
// # Configuration
//
// Values are read, highest priority first, from command-line flags,
// DOCSMAN_* environment variables (DOCSMAN_SERVER_PORT,
// DOCSMAN_FEATURES_LEGEND, ...) and a YAML file. The file is taken from
// --config, then DOCSMAN_CONFIG_FILE, then .docsman.yml in the working
// directory:
//
//	root: ./docs
//	server:
//	  host: 127.0.0.1
//	  port: 3000
//	features:
//	  autoreload: true
//	  legend: true
//	log:
//	  level: debug
//	  format: json
package cmd
