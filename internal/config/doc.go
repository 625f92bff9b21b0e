// Package config loads the ftp2http configuration file and converts it into
// the gateway and FTP driver configurations.
//
// Two file formats are read. Files ending in .yaml or .yml are YAML. Any
// other file uses the line format of earlier releases: one "key: value" per
// line, "#" comments, and "user: name:hash" repeated once per account.
// FTP2HTTP_* environment variables override file values.
package config
