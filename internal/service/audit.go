package service

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"openwfm/api/internal/model"
)

// SubjectAudit is the NATS subject audit events are published on.
const SubjectAudit = "wfm.audit"

// AuditPublisher emits audit events as a fire-and-forget side effect of state
// transitions. Persisting the trail is the consumer's job; a publish failure
// is logged and never fails the triggering operation.
type AuditPublisher struct {
	nats *nats.Conn
}

// NewAuditPublisher creates an audit publisher. A nil connection disables
// publishing, which keeps tests and degraded deployments working.
func NewAuditPublisher(natsConn *nats.Conn) *AuditPublisher {
	return &AuditPublisher{nats: natsConn}
}

// Record publishes one audit event.
func (p *AuditPublisher) Record(event model.AuditEvent) {
	if p == nil || p.nats == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Audit] Failed to marshal event: %v", err)
		return
	}
	if err := p.nats.Publish(SubjectAudit, data); err != nil {
		log.Printf("[Audit] Failed to publish event: %v", err)
	}
}
