// Package queue carries outbound mail over RabbitMQ so the API does not
// block on the mail provider.
package queue

import "time"

// MailQueueName is the durable queue outbound mail is published to.
const MailQueueName = "mail.outbound"

// MailEvent is one message to deliver. HTML is already rendered.
type MailEvent struct {
	To       []string  `json:"to"`
	Subject  string    `json:"subject"`
	HTML     string    `json:"html"`
	QueuedAt time.Time `json:"queued_at"`
}
