/*
Package domain contains the core models of the comanda conversational engine.

It defines the authored automation graph (Flow, Node, Edge), the per-conversation
execution state (Session) and the values exchanged with the outside world
(InboundMessage, OutboundMessage, Product, LineItem, Claim). The package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Flow: an authored graph of typed nodes joined by directed edges.
  - Node: a typed step; its configuration is a closed set of variants, one per NodeKind.
  - Edge: a directed connection, optionally tagged with a source handle for multi-output nodes.
  - Session: the durable execution state of one conversation (position, variables, cart, pause flag).
*/
package domain
