// Package command maps command keys to external command lines and launches
// them without blocking the caller.
//
// A command line is split on whitespace only. Quoting and escaping are not
// supported, so an argument cannot contain a space. No timeout is applied:
// a launched command runs until it exits on its own.
package command
