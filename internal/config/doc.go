// Package config loads the YAML configuration shared by the player and the
// stream server.
//
// A missing path yields the defaults. A file only needs to name the values
// it changes; everything else keeps its default. Durations use Go syntax
// ("500ms", "1s").
package config
