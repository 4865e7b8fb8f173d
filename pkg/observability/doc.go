/*
Package observability turns engine lifecycle hooks into Prometheus metrics
and structured log lines.

Hooks from several sources are merged with Combine before being passed to
comanda.WithHooks.
*/
package observability
