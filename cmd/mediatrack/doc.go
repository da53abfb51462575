// Package main hosts the mediatrack CLI.
//
// Commands score candidates offline, resolve titles against TMDB through the
// persistent cache, record progress updates, and inspect or maintain the
// cache database. Configuration, logging, and the store are opened lazily so
// commands that need none of them (config init, variants) stay cheap.
package main
