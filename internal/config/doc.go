// Package config provides configuration management for moviedata.
//
// This package handles:
//   - Loading and saving settings from TOML files
//   - Default configuration values
//   - Resolving the history and archive database paths
//
// # Loading from File
//
//	path, _ := config.DefaultPath()
//	settings, err := config.Load(path)
//	if err != nil {
//	    // The file exists but is malformed or invalid
//	}
//
// # Example File
//
//	data_dir = "/home/me/.local/share/moviedata"
//	default_format = ".mqt"
//	max_recent_files = 20
//	log_level = "debug"
//
//	[keys]
//	quit = "q"
package config
