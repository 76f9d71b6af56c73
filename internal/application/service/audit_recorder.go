package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/dispatcher"
	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/domain/event"
)

const (
	defaultAuditBufferSize = 256
	auditWriteTimeout      = 5 * time.Second
)

// AuditRecorder appends audit records. Record never blocks on storage and
// never reports failure to the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entityType, entityID, action string, actorID *string, meta map[string]interface{})
}

// AsyncAuditRecorder queues audit records on a buffered channel and writes
// them from a background goroutine. A full queue drops the record with a log
// line. It satisfies worker.Worker so the worker manager owns its lifecycle.
type AsyncAuditRecorder struct {
	repo   port.AuditRepository
	logger Logger
	queue  chan *entity.AuditRecord

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

// NewAsyncAuditRecorder creates a recorder with the given queue capacity
func NewAsyncAuditRecorder(repo port.AuditRepository, bufferSize int, logger Logger) *AsyncAuditRecorder {
	if bufferSize <= 0 {
		bufferSize = defaultAuditBufferSize
	}
	return &AsyncAuditRecorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan *entity.AuditRecord, bufferSize),
		done:   make(chan struct{}),
	}
}

// Record enqueues one record
func (r *AsyncAuditRecorder) Record(_ context.Context, entityType, entityID, action string, actorID *string, meta map[string]interface{}) {
	record := &entity.AuditRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Meta:       meta,
		CreatedAt:  time.Now().UTC(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Error("Audit recorder stopped, dropping record",
			"entity_type", entityType, "entity_id", entityID, "action", action)
		return
	}

	select {
	case r.queue <- record:
	default:
		r.logger.Error("Audit queue full, dropping record",
			"entity_type", entityType, "entity_id", entityID, "action", action)
	}
}

// Start launches the writer goroutine
func (r *AsyncAuditRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return nil
	}
	r.started = true

	go func() {
		defer close(r.done)
		for record := range r.queue {
			r.write(record)
		}
	}()
	return nil
}

// Stop stops accepting records and flushes the queue
func (r *AsyncAuditRecorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	started := r.started
	r.mu.Unlock()

	if started {
		<-r.done
		return
	}
	for record := range r.queue {
		r.write(record)
	}
}

// Name identifies the worker in logs
func (r *AsyncAuditRecorder) Name() string {
	return "audit-recorder"
}

func (r *AsyncAuditRecorder) write(record *entity.AuditRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, record); err != nil {
		r.logger.Error("Failed to write audit record",
			"error", err,
			"entity_type", record.EntityType,
			"entity_id", record.EntityID,
			"action", record.Action)
	}
}

// auditActions maps lifecycle events to the audit action they record
var auditActions = map[event.Type]string{
	event.TypeRequestCreated:   entity.ActionCreate,
	event.TypeRequestEdited:    entity.ActionEdit,
	event.TypeRequestSubmitted: entity.ActionSubmit,
	event.TypeDecisionRecorded: entity.ActionDecide,
	event.TypeRequestApproved:  entity.ActionApprove,
	event.TypeRequestRejected:  entity.ActionReject,
	event.TypeRequestCancelled: entity.ActionCancel,
}

// RegisterAuditHandlers subscribes the recorder to every lifecycle event
func RegisterAuditHandlers(d dispatcher.Dispatcher, recorder AuditRecorder) {
	for eventType, action := range auditActions {
		action := action
		d.SubscribeNamed(eventType, "audit-"+action, func(ctx context.Context, evt *event.Event) error {
			recordEvent(ctx, recorder, entity.EntityApprovalRequest, strconv.FormatInt(evt.RequestID, 10), action, evt)
			return nil
		})
	}

	d.SubscribeNamed(event.TypeLedgerMaterialized, "audit-materialize", func(ctx context.Context, evt *event.Event) error {
		entryID := evt.GetPayloadString(event.KeyEntryID)
		recordEvent(ctx, recorder, entity.EntityLedgerEntry, entryID, entity.ActionMaterialize, evt)
		return nil
	})
}

func recordEvent(ctx context.Context, recorder AuditRecorder, entityType, entityID, action string, evt *event.Event) {
	meta := make(map[string]interface{}, len(evt.Payload)+2)
	for k, v := range evt.Payload {
		meta[k] = v
	}
	meta["event_id"] = evt.ID
	meta["correlation_id"] = evt.CorrelationID
	if entityType != entity.EntityApprovalRequest {
		meta["request_id"] = evt.RequestID
	}
	recorder.Record(ctx, entityType, entityID, action, actorRef(evt.ActorID), meta)
}

func actorRef(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}
