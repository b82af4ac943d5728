package pbx

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
)

// Yeastar adapts the Yeastar P-series OpenAPI. Unlike 3CX, Yeastar returns
// every response in an {"errcode", "errmsg", ...} envelope with snake_case
// fields and epoch-second timestamps; errcode != 0 is a vendor failure even
// on HTTP 200. Normalization into the shared models happens here.
type Yeastar struct {
	base
}

// NewYeastar builds a disconnected Yeastar adapter.
func NewYeastar(opts Options, logger *utils.Logger) *Yeastar {
	return &Yeastar{base: newBase(models.VendorYeastar, opts, logger)}
}

// yeastarEnvelope is embedded in every wire struct to catch errcode.
type yeastarEnvelope struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (e yeastarEnvelope) check(path string) error {
	if e.ErrCode != 0 {
		return Errf(CodeVendor, "%s: errcode %d: %s", path, e.ErrCode, e.ErrMsg)
	}
	return nil
}

func (a *Yeastar) get(ctx context.Context, path string, query url.Values, out interface {
	check(string) error
}) error {
	cli, err := a.client()
	if err != nil {
		return err
	}
	if err := cli.getJSON(ctx, path, query, out); err != nil {
		return err
	}
	return out.check(path)
}

func (a *Yeastar) Connect(ctx context.Context, cfg models.PBXConnectionConfig) error {
	return a.connect(ctx, cfg, func(ctx context.Context, c *client) error {
		var info yeastarSystemInfo
		if err := c.getJSON(ctx, "/openapi/v1.0/system/information", nil, &info); err != nil {
			return err
		}
		return info.check("/openapi/v1.0/system/information")
	}, a)
}

func (a *Yeastar) SystemStatus(ctx context.Context) models.SystemStatus {
	return a.systemStatus(ctx, a.Metrics)
}

func (a *Yeastar) Metrics(ctx context.Context, from, to time.Time) (*models.MetricsSnapshot, error) {
	var info yeastarSystemInfo
	if err := a.get(ctx, "/openapi/v1.0/system/information", nil, &info); err != nil {
		return nil, err
	}
	var stats yeastarCallStats
	if err := a.get(ctx, "/openapi/v1.0/cdr/statistics", yeastarRangeQuery(from, to), &stats); err != nil {
		return nil, err
	}

	snap := &models.MetricsSnapshot{
		CPUPct:               info.CPUUtilization,
		MemoryPct:            info.MemoryUtilization,
		DiskPct:              info.DiskUtilization,
		NetworkRxKbps:        info.NetworkRxKbps,
		NetworkTxKbps:        info.NetworkTxKbps,
		UptimeSec:            info.UptimeSec,
		Version:              info.FirmwareVersion,
		ExtensionsTotal:      info.ExtensionTotal,
		ExtensionsRegistered: info.ExtensionRegistered,
		QueuesTotal:          info.QueueTotal,
		ActiveCalls:          info.ActiveCallCount,
		Calls: models.CallMetrics{
			TotalCalls:      stats.TotalCount,
			AverageDuration: stats.AvgTalkSec,
			AnsweredCalls:   stats.AnsweredCount,
			MissedCalls:     stats.NoAnswerCount,
			AverageWaitTime: stats.AvgRingSec,
		},
		CollectedAt: time.Now(),
	}
	return snap, nil
}

func (a *Yeastar) CallLogs(ctx context.Context, from, to time.Time) ([]models.CallRecord, error) {
	var resp struct {
		yeastarEnvelope
		CDRList []yeastarCDR `json:"cdr_list"`
	}
	if err := a.get(ctx, "/openapi/v1.0/cdr/search", yeastarRangeQuery(from, to), &resp); err != nil {
		return nil, err
	}
	out := make([]models.CallRecord, 0, len(resp.CDRList))
	for _, c := range resp.CDRList {
		out = append(out, c.normalize())
	}
	return out, nil
}

func (a *Yeastar) SystemLogs(ctx context.Context, from, to time.Time) ([]models.SystemLogEntry, error) {
	var resp struct {
		yeastarEnvelope
		LogList []struct {
			Time    int64  `json:"time"`
			Level   string `json:"level"`
			Module  string `json:"module"`
			Content string `json:"content"`
		} `json:"log_list"`
	}
	if err := a.get(ctx, "/openapi/v1.0/system/log/list", yeastarRangeQuery(from, to), &resp); err != nil {
		return nil, err
	}
	out := make([]models.SystemLogEntry, 0, len(resp.LogList))
	for _, e := range resp.LogList {
		out = append(out, models.SystemLogEntry{
			Timestamp: time.Unix(e.Time, 0),
			Level:     e.Level,
			Service:   e.Module,
			Message:   e.Content,
		})
	}
	return out, nil
}

func (a *Yeastar) Extensions(ctx context.Context) ([]models.Extension, error) {
	var resp struct {
		yeastarEnvelope
		ExtensionList []struct {
			Number     string `json:"number"`
			CallerID   string `json:"caller_id_name"`
			Registered bool   `json:"registered"`
			Presence   string `json:"presence_status"`
		} `json:"extension_list"`
	}
	if err := a.get(ctx, "/openapi/v1.0/extension/list", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Extension, 0, len(resp.ExtensionList))
	for _, e := range resp.ExtensionList {
		out = append(out, models.Extension{
			Number:     e.Number,
			Name:       e.CallerID,
			Registered: e.Registered,
			Status:     e.Presence,
		})
	}
	return out, nil
}

func (a *Yeastar) QueueStatus(ctx context.Context) ([]models.QueueStatus, error) {
	var resp struct {
		yeastarEnvelope
		QueueList []struct {
			Number         string  `json:"number"`
			Name           string  `json:"name"`
			WaitingCount   int     `json:"waiting_count"`
			AgentCount     int     `json:"agent_count"`
			IdleAgentCount int     `json:"idle_agent_count"`
			MaxWaitSec     int     `json:"max_wait_time"`
			SLAPercent     float64 `json:"sla_percent"`
		} `json:"queue_list"`
	}
	if err := a.get(ctx, "/openapi/v1.0/queue/list", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.QueueStatus, 0, len(resp.QueueList))
	for _, q := range resp.QueueList {
		out = append(out, models.QueueStatus{
			ID:              q.Number,
			Name:            q.Name,
			Waiting:         q.WaitingCount,
			AgentsLoggedIn:  q.AgentCount,
			AgentsAvailable: q.IdleAgentCount,
			LongestWaitSec:  q.MaxWaitSec,
			ServiceLevelPct: q.SLAPercent,
		})
	}
	return out, nil
}

func (a *Yeastar) Recordings(ctx context.Context, from, to time.Time) ([]models.Recording, error) {
	var resp struct {
		yeastarEnvelope
		RecordingList []struct {
			ID       string  `json:"id"`
			CallID   string  `json:"call_id"`
			Agent    string  `json:"agent"`
			Duration int     `json:"duration"`
			Time     int64   `json:"time"`
			Score    float64 `json:"quality_score"`
			FileURL  string  `json:"file_url"`
		} `json:"recording_list"`
	}
	if err := a.get(ctx, "/openapi/v1.0/recording/list", yeastarRangeQuery(from, to), &resp); err != nil {
		return nil, err
	}
	out := make([]models.Recording, 0, len(resp.RecordingList))
	for _, r := range resp.RecordingList {
		out = append(out, models.Recording{
			ID:          r.ID,
			CallID:      r.CallID,
			Agent:       r.Agent,
			DurationSec: r.Duration,
			StartedAt:   time.Unix(r.Time, 0),
			Score:       r.Score,
			URL:         r.FileURL,
		})
	}
	return out, nil
}

func (a *Yeastar) Trunks(ctx context.Context) ([]models.Trunk, error) {
	var resp struct {
		yeastarEnvelope
		TrunkList []struct {
			Name         string `json:"name"`
			Provider     string `json:"provider"`
			Status       string `json:"status"`
			BusyChannels int    `json:"busy_channels"`
			MaxChannels  int    `json:"max_channels"`
		} `json:"trunk_list"`
	}
	if err := a.get(ctx, "/openapi/v1.0/trunk/list", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Trunk, 0, len(resp.TrunkList))
	for _, t := range resp.TrunkList {
		out = append(out, models.Trunk{
			ID:            t.Name,
			Provider:      t.Provider,
			Status:        t.Status,
			ChannelsInUse: t.BusyChannels,
			ChannelsTotal: t.MaxChannels,
		})
	}
	return out, nil
}

// ConferenceRooms is the Yeastar-specific extra behind the
// ConferenceProvider capability.
func (a *Yeastar) ConferenceRooms(ctx context.Context) ([]models.ConferenceRoom, error) {
	var resp struct {
		yeastarEnvelope
		ConferenceList []struct {
			Number       string `json:"number"`
			Name         string `json:"name"`
			MemberCount  int    `json:"member_count"`
			LockedEnable int    `json:"locked_enable"`
		} `json:"conference_list"`
	}
	if err := a.get(ctx, "/openapi/v1.0/conference/list", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.ConferenceRoom, 0, len(resp.ConferenceList))
	for _, c := range resp.ConferenceList {
		out = append(out, models.ConferenceRoom{
			Number:       c.Number,
			Name:         c.Name,
			Participants: c.MemberCount,
			Locked:       c.LockedEnable == 1,
		})
	}
	return out, nil
}

func (a *Yeastar) ClearCache(ctx context.Context) error {
	return a.maintenance(ctx, "/openapi/v1.0/system/clear_cache")
}

func (a *Yeastar) RestartServices(ctx context.Context) error {
	return a.maintenance(ctx, "/openapi/v1.0/system/restart_service")
}

func (a *Yeastar) EmergencyStop(ctx context.Context) error {
	return a.maintenance(ctx, "/openapi/v1.0/system/shutdown")
}

func (a *Yeastar) maintenance(ctx context.Context, path string) error {
	cli, err := a.client()
	if err != nil {
		return err
	}
	var resp yeastarEnvelope
	if err := cli.postJSON(ctx, path, map[string]any{}, &resp); err != nil {
		return err
	}
	return resp.check(path)
}

// Yeastar wire shapes.

type yeastarSystemInfo struct {
	yeastarEnvelope
	FirmwareVersion     string  `json:"firmware_version"`
	UptimeSec           int64   `json:"uptime"`
	CPUUtilization      float64 `json:"cpu_utilization"`
	MemoryUtilization   float64 `json:"memory_utilization"`
	DiskUtilization     float64 `json:"disk_utilization"`
	NetworkRxKbps       float64 `json:"network_rx_kbps"`
	NetworkTxKbps       float64 `json:"network_tx_kbps"`
	ExtensionTotal      int     `json:"extension_total"`
	ExtensionRegistered int     `json:"extension_registered"`
	QueueTotal          int     `json:"queue_total"`
	ActiveCallCount     int     `json:"active_call_count"`
}

type yeastarCallStats struct {
	yeastarEnvelope
	TotalCount    int     `json:"total_count"`
	AnsweredCount int     `json:"answered_count"`
	NoAnswerCount int     `json:"no_answer_count"`
	AvgTalkSec    float64 `json:"avg_talk_duration"`
	AvgRingSec    float64 `json:"avg_ring_duration"`
}

type yeastarCDR struct {
	ID          string  `json:"id"`
	CallFrom    string  `json:"call_from"`
	CallTo      string  `json:"call_to"`
	CallType    string  `json:"call_type"`
	Disposition string  `json:"disposition"`
	Status      string  `json:"status"`
	TalkSec     int     `json:"talk_duration"`
	TimeStart   int64   `json:"time_start"`
	Trunk       string  `json:"trunk"`
	Cost        float64 `json:"cost"`
}

func (c yeastarCDR) normalize() models.CallRecord {
	return models.CallRecord{
		ID:          c.ID,
		From:        c.CallFrom,
		To:          c.CallTo,
		Type:        c.recordType(),
		Status:      c.Status,
		DurationSec: c.TalkSec,
		StartedAt:   time.Unix(c.TimeStart, 0),
		Trunk:       c.Trunk,
		Cost:        c.Cost,
	}
}

func (c yeastarCDR) recordType() models.CallType {
	switch c.Disposition {
	case "NO ANSWER", "BUSY":
		return models.CallMissed
	case "FAILED":
		return models.CallFailed
	}
	switch c.CallType {
	case "Inbound":
		return models.CallInbound
	case "Outbound":
		return models.CallOutbound
	default:
		return models.CallInternal
	}
}

// yeastarRangeQuery converts a window to the epoch-second parameters the
// OpenAPI expects.
func yeastarRangeQuery(from, to time.Time) url.Values {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("start_time", strconv.FormatInt(from.Unix(), 10))
	}
	if !to.IsZero() {
		q.Set("end_time", strconv.FormatInt(to.Unix(), 10))
	}
	return q
}
