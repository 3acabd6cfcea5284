// Package uniuri generates random strings from a fixed alphabet without modulo bias.
// The daemon uses it for the bootstrap admin password.
package uniuri
