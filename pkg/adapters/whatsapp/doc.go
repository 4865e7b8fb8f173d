// Package whatsapp talks to a WhatsApp Business (Cloud API compatible) gateway:
// Sender delivers outbound messages and ParseWebhook decodes inbound
// notifications into domain messages.
package whatsapp
