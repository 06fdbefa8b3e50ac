/*
Package log provides structured logging for the ReifyDB core using zerolog.

A single package-level Logger is initialized once via Init and shared by
every other package. Context loggers (WithComponent, WithNamespace,
WithTable, WithFlow, WithVersion, WithSubscription) attach low-cardinality
scoping fields; the engine hands one of these to the flow scheduler and
the flow registry as a constructor argument.

Debug level is for per-operation tracing during development; it is not
meant to run at per-row granularity even at debug, since that would make
the logs useless for both humans and aggregation tools. Warn and error are
reserved for conditions an operator should look at — a failed commit
validation is normal control flow (surfaced as a Diagnostic) and is not
logged at warn by itself; an internal invariant violation always is.
*/
package log
