// Package administrator is the command core of the Administrator bot.
//
// Commands are registered on a Container with a Trigger. An invocation runs through the
// middlewares of every container it passed through, then the trigger's own middlewares
// (usually the guards), then argument parsing, and finally the command itself.
package administrator
