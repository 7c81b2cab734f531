// Package logging is a thin level gate over the standard log package:
// four levels, one package-level threshold set from --log-level.
package logging

import (
	"log"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

var current = LevelInfo

// SetLevel parses --log-level's value, defaulting to INFO on anything
// unrecognized.
func SetLevel(name string) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		current = LevelDebug
	case "WARNING", "WARN":
		current = LevelWarning
	case "ERROR":
		current = LevelError
	default:
		current = LevelInfo
	}
}

func Debugf(format string, args ...interface{}) {
	if current <= LevelDebug {
		log.Printf("DEBUG "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if current <= LevelInfo {
		log.Printf("INFO "+format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if current <= LevelWarning {
		log.Printf("WARNING "+format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if current <= LevelError {
		log.Printf("ERROR "+format, args...)
	}
}
