package main

import "flag"

// cliFlags holds the parsed command-line options.
type cliFlags struct {
	ConfigFile string
	Mode       string
	URLs       []string
}

// parseFlags parses command-line flags. Positional arguments are page URLs
// captured in addition to the configured auto-capture list.
func parseFlags() cliFlags {
	configFile := flag.String("config", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	configFileAlias := flag.String("c", "", "Alias for -config")

	mode := flag.String("mode", "onetime", "Mode to run the tool: onetime or automated")
	modeAlias := flag.String("m", "", "Alias for -mode")

	flag.Parse()

	if *configFile == "" && *configFileAlias != "" {
		*configFile = *configFileAlias
	}
	if *modeAlias != "" {
		*mode = *modeAlias
	}

	return cliFlags{
		ConfigFile: *configFile,
		Mode:       *mode,
		URLs:       flag.Args(),
	}
}
