// Package query parses free-text search input into include and exclude tag
// sets. Operators must be surrounded by whitespace: "cats + dogs - frogs".
package query
