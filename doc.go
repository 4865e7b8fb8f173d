/*
Package comanda runs WhatsApp ordering conversations described as flow graphs.

A flow is a directed graph of typed nodes (messages, questions, polls,
conditions, catalog and cart operations, order creation, timers, handover)
authored as YAML or JSON. The Engine keeps one durable session per
conversation, advances it one step per inbound message and delivers the
replies through a Sender.

# Concept

Each step runs under an exclusive per-conversation lock: the session is
loaded, the interpreter executes nodes until one needs the user (a question,
a poll, a catalog) or the flow ends, and the new state is saved before any
message is sent. Redelivered messages are recognized by id and dropped.
Conversations handed over to a human stay paused until an operator resolves
them; messages received meanwhile are kept and fed to the flow on resume.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/comanda"
		"github.com/aretw0/comanda/pkg/adapters/file"
		"github.com/aretw0/comanda/pkg/adapters/memory"
		"github.com/aretw0/comanda/pkg/domain"
	)

	func main() {
		repo, err := file.LoadDir("./flows")
		if err != nil {
			log.Fatal(err)
		}
		outbox := memory.NewOutbox()

		eng, err := comanda.New(
			comanda.WithSessionStore(memory.NewStore()),
			comanda.WithFlows(repo),
			comanda.WithSender(outbox),
			comanda.WithDefaultFlow("menu"),
		)
		if err != nil {
			log.Fatal(err)
		}
		defer eng.Close()

		err = eng.HandleInbound(context.Background(), domain.InboundMessage{
			ID:   "wamid.1",
			From: "5491155550000",
			Text: "hola",
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, text := range outbox.Texts("5491155550000") {
			log.Println(text)
		}
	}

Production deployments use the Redis or SQLite session stores, the WhatsApp
gateway sender and the HTTP server in pkg/adapters; see cmd/comanda.
*/
package comanda
