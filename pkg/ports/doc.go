/*
Package ports defines the driven ports (interfaces) for the comanda engine.

These interfaces decouple the interpreter from external implementations, allowing
the engine to work with various storage backends, flow sources, transports and
back-office services.

# Key Interfaces

  - FlowRepository: loads authored flows by id or trigger keyword.
  - SessionStore: persists and loads conversation Sessions.
  - DistributedLocker: provides distributed locking for concurrent session access across replicas.
  - Sender: delivers outbound messages through the messaging transport.
  - Catalog, OrderCreator, ClaimCreator, DocumentRenderer, AttentionNotifier: side-effecting collaborators.
*/
package ports
