package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/store"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
)

// AlertStore is the slice of the document store the service needs for the
// alert workflow.
type AlertStore interface {
	InsertAlert(ctx context.Context, a models.Alert) error
	ListAlerts(ctx context.Context, f store.AlertFilter) ([]models.Alert, error)
	GetAlert(ctx context.Context, id string) (models.Alert, error)
	AcknowledgeAlert(ctx context.Context, id, by string, at time.Time) (models.Alert, error)
}

// SettingsStore persists per-user preference blobs.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*models.SupervisorSettings, error)
	PutSettings(ctx context.Context, userID string, s models.SupervisorSettings) error
}

// Service answers supervisor-facing queries against exactly one adapter:
// the one behind the currently active PBX config, resolved at construction.
// Every operation returns a uniform Result envelope instead of an error so
// route handlers can pass it straight through.
type Service struct {
	registry *pbx.Registry
	alerts   AlertStore
	settings SettingsStore
	logger   *utils.Logger

	adapter pbx.Adapter // nil when no config is active
	broker  *pbx.Broker
	sub     *pbx.Subscription
	done    chan struct{}
}

// New resolves the active PBX config through cfgs and binds the service to
// the matching adapter. When no vendor has an active config the service
// still constructs, but every operation fails fast with the no-active-PBX
// condition.
func New(ctx context.Context, registry *pbx.Registry, cfgs pbx.ConfigSource, alerts AlertStore, settings SettingsStore, logger *utils.Logger) (*Service, error) {
	s := &Service{
		registry: registry,
		alerts:   alerts,
		settings: settings,
		logger:   logger,
		broker:   pbx.NewBroker(),
		done:     make(chan struct{}),
	}

	for _, vendor := range models.Vendors() {
		cfg, err := cfgs.ActiveConfig(ctx, vendor)
		if err != nil {
			return nil, err
		}
		if cfg == nil || !cfg.Enabled {
			continue
		}
		if a, ok := registry.Adapter(vendor); ok {
			s.adapter = a
			break
		}
	}

	if s.adapter != nil {
		s.sub = s.adapter.Events().Subscribe(64)
		go s.relay()
		s.logf("supervisor service bound to %s", s.adapter.Vendor())
	} else {
		s.logf("supervisor service started without an active PBX")
	}
	return s, nil
}

// Events exposes the supervisor-scoped event stream. REST consumers and
// the broadcast server share this single adapter subscription rather than
// each subscribing to the adapter themselves.
func (s *Service) Events() *pbx.Broker { return s.broker }

// Vendor returns the bound vendor, or "" when no PBX is active.
func (s *Service) Vendor() models.PBXVendor {
	if s.adapter == nil {
		return ""
	}
	return s.adapter.Vendor()
}

// Close cancels the adapter subscription and the relay goroutine.
func (s *Service) Close() {
	if s.sub != nil {
		s.sub.Close()
		<-s.done
	}
	s.broker.Close()
}

// Supervisor-scoped event types. Downstream consumers subscribe to these
// instead of the raw adapter stream.
const (
	EventCallUpdate    pbx.EventType = "supervisor:callUpdate"
	EventSystemUpdate  pbx.EventType = "supervisor:systemUpdate"
	EventMetricsUpdate pbx.EventType = "supervisor:metricsUpdate"
	EventNewAlert      pbx.EventType = "supervisor:newAlert"
	EventError         pbx.EventType = "supervisor:error"
)

// relay re-scopes adapter events onto the service broker.
func (s *Service) relay() {
	defer close(s.done)
	for ev := range s.sub.C() {
		switch ev.Type {
		case pbx.EventCallLog:
			ev.Type = EventCallUpdate
		case pbx.EventSystemLog:
			ev.Type = EventSystemUpdate
		case pbx.EventMetrics:
			ev.Type = EventMetricsUpdate
		case pbx.EventError:
			ev.Type = EventError
		}
		s.broker.Publish(ev)
	}
}

// Result is the uniform operation envelope.
type Result struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Error   *ResultError `json:"error,omitempty"`
}

// ResultError carries a stable code alongside the human message.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(data any) Result { return Result{Success: true, Data: data} }

func fail(err error) Result {
	return Result{Success: false, Error: &ResultError{
		Code:    string(pbx.CodeOf(err)),
		Message: err.Error(),
	}}
}

var errNoActive = pbx.ErrNoActivePBX

func (s *Service) bound() (pbx.Adapter, error) {
	if s.adapter == nil {
		return nil, errNoActive
	}
	return s.adapter, nil
}

// TeamStatus returns extensions plus live queue state.
func (s *Service) TeamStatus(ctx context.Context) Result {
	a, err := s.bound()
	if err != nil {
		return fail(err)
	}
	exts, err := a.Extensions(ctx)
	if err != nil {
		return fail(err)
	}
	queues, err := a.QueueStatus(ctx)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{
		"extensions":  exts,
		"queues":      queues,
		"lastUpdated": time.Now().UTC(),
	})
}

// ActiveCalls filters the vendor's call logs down to in-progress calls.
func (s *Service) ActiveCalls(ctx context.Context) Result {
	a, err := s.bound()
	if err != nil {
		return fail(err)
	}
	calls, err := a.CallLogs(ctx, time.Time{}, time.Time{})
	if err != nil {
		return fail(err)
	}
	active := make([]models.CallRecord, 0)
	for _, c := range calls {
		if c.Status == "active" {
			active = append(active, c)
		}
	}
	return ok(map[string]any{
		"count":     len(active),
		"calls":     active,
		"timestamp": time.Now().UTC(),
	})
}

// TeamMetrics aggregates the vendor's call counters for a window. Fields
// the vendor does not report stay zero; a missing field is never an error.
func (s *Service) TeamMetrics(ctx context.Context, from, to time.Time) Result {
	a, err := s.bound()
	if err != nil {
		return fail(err)
	}
	snap, err := a.Metrics(ctx, from, to)
	if err != nil {
		return fail(err)
	}
	return ok(models.TeamMetrics{
		TotalCalls:      snap.Calls.TotalCalls,
		AverageDuration: snap.Calls.AverageDuration,
		AnsweredCalls:   snap.Calls.AnsweredCalls,
		MissedCalls:     snap.Calls.MissedCalls,
		AverageWaitTime: snap.Calls.AverageWaitTime,
	})
}

// QualityMetrics buckets recording scores for a window. Boundaries are
// inclusive (90 is excellent, 70 good, 50 fair) and the average over zero
// recordings is zero.
func (s *Service) QualityMetrics(ctx context.Context, from, to time.Time) Result {
	a, err := s.bound()
	if err != nil {
		return fail(err)
	}
	recs, err := a.Recordings(ctx, from, to)
	if err != nil {
		return fail(err)
	}
	var (
		sum  float64
		dist models.QualityDistribution
	)
	for _, r := range recs {
		sum += r.Score
		switch {
		case r.Score >= 90:
			dist.Excellent++
		case r.Score >= 70:
			dist.Good++
		case r.Score >= 50:
			dist.Fair++
		default:
			dist.Poor++
		}
	}
	avg := 0.0
	if len(recs) > 0 {
		avg = sum / float64(len(recs))
	}
	return ok(models.QualityMetrics{
		TotalRecordings: len(recs),
		AverageScore:    avg,
		Distribution:    dist,
	})
}

// Alerts lists stored alerts, newest first, capped by the store.
func (s *Service) Alerts(ctx context.Context, f store.AlertFilter) Result {
	alerts, err := s.alerts.ListAlerts(ctx, f)
	if err != nil {
		return fail(err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return ok(alerts)
}

// AcknowledgeAlert moves an alert to its terminal acknowledged state. The
// transition is one-way: repeating the call leaves the original audit
// fields untouched.
func (s *Service) AcknowledgeAlert(ctx context.Context, id, userID string) Result {
	a, err := s.alerts.AcknowledgeAlert(ctx, id, userID, time.Now().UTC())
	if errors.Is(err, store.ErrAlertNotFound) {
		return fail(pbx.Errf(pbx.CodeVendor, "alert %s not found", id))
	}
	if err != nil {
		return fail(err)
	}
	return ok(a)
}

// CreateSystemAlert records a PBX-health alert and publishes it for
// real-time fan-out.
func (s *Service) CreateSystemAlert(ctx context.Context, title, message string, priority models.AlertPriority, metadata map[string]any) Result {
	return s.createAlert(ctx, models.Alert{
		Type:     models.AlertSystem,
		Title:    title,
		Message:  message,
		Priority: priority,
		Metadata: metadata,
	})
}

// CreatePerformanceAlert records an agent/queue performance alert.
func (s *Service) CreatePerformanceAlert(ctx context.Context, title, message string, priority models.AlertPriority, agentID, agentName string, metadata map[string]any) Result {
	return s.createAlert(ctx, models.Alert{
		Type:      models.AlertPerformance,
		Title:     title,
		Message:   message,
		Priority:  priority,
		AgentID:   agentID,
		AgentName: agentName,
		Metadata:  metadata,
	})
}

func (s *Service) createAlert(ctx context.Context, a models.Alert) Result {
	if !models.ValidPriority(a.Priority) {
		return fail(pbx.Errf(pbx.CodeVendor, "invalid alert priority %q", a.Priority))
	}
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	if err := s.alerts.InsertAlert(ctx, a); err != nil {
		return fail(err)
	}
	s.broker.Publish(pbx.Event{Type: EventNewAlert, Vendor: s.Vendor(), Alert: &a})
	s.logf("alert created: [%s/%s] %s", a.Type, a.Priority, a.Title)
	return ok(a)
}

// Settings returns the user's stored settings, or the hardcoded default
// shape when none exist. The default is not persisted.
func (s *Service) Settings(ctx context.Context, userID string) Result {
	stored, err := s.settings.GetSettings(ctx, userID)
	if err != nil {
		return fail(err)
	}
	if stored == nil {
		def := models.DefaultSupervisorSettings()
		return ok(def)
	}
	return ok(*stored)
}

// UpdateSettings persists the user's settings blob.
func (s *Service) UpdateSettings(ctx context.Context, userID string, set models.SupervisorSettings) Result {
	if err := s.settings.PutSettings(ctx, userID, set); err != nil {
		return fail(err)
	}
	return ok(set)
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Writef(format, args...)
	}
}
