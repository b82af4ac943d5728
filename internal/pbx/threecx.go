package pbx

import (
	"context"
	"strings"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
)

// ThreeCX adapts the 3CX XAPI. 3CX wraps collection responses in an
// OData-style {"value": [...]} envelope and reports timestamps as RFC3339;
// everything is normalized into the shared models at this boundary.
type ThreeCX struct {
	base
}

// NewThreeCX builds a disconnected 3CX adapter.
func NewThreeCX(opts Options, logger *utils.Logger) *ThreeCX {
	return &ThreeCX{base: newBase(models.VendorThreeCX, opts, logger)}
}

func (a *ThreeCX) Connect(ctx context.Context, cfg models.PBXConnectionConfig) error {
	return a.connect(ctx, cfg, func(ctx context.Context, c *client) error {
		var st threeCXStatus
		return c.getJSON(ctx, "/xapi/v1/SystemStatus", nil, &st)
	}, a)
}

func (a *ThreeCX) SystemStatus(ctx context.Context) models.SystemStatus {
	return a.systemStatus(ctx, a.Metrics)
}

func (a *ThreeCX) Metrics(ctx context.Context, from, to time.Time) (*models.MetricsSnapshot, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var st threeCXStatus
	if err := cli.getJSON(ctx, "/xapi/v1/SystemStatus", nil, &st); err != nil {
		return nil, err
	}
	var stats threeCXCallStats
	if err := cli.getJSON(ctx, "/xapi/v1/ReportCallStatistics", timeRangeQuery(from, to), &stats); err != nil {
		return nil, err
	}

	snap := &models.MetricsSnapshot{
		CPUPct:               st.CPUUsage,
		MemoryPct:            pctOf(st.TotalMemory-st.FreeMemory, st.TotalMemory),
		DiskPct:              pctOf(st.TotalDiskSpace-st.FreeDiskSpace, st.TotalDiskSpace),
		UptimeSec:            st.UptimeSeconds,
		Version:              st.Version,
		ExtensionsTotal:      st.ExtensionsTotal,
		ExtensionsRegistered: st.ExtensionsRegistered,
		QueuesTotal:          st.QueuesTotal,
		ActiveCalls:          st.CallsActive,
		Calls: models.CallMetrics{
			TotalCalls:      stats.TotalCalls,
			AverageDuration: stats.AvgTalkingDur,
			AnsweredCalls:   stats.AnsweredCount,
			MissedCalls:     stats.MissedCount,
			AverageWaitTime: stats.AvgWaitingDur,
		},
		CollectedAt: time.Now(),
	}
	return snap, nil
}

func (a *ThreeCX) CallLogs(ctx context.Context, from, to time.Time) ([]models.CallRecord, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []threeCXCall `json:"value"`
	}
	if err := cli.getJSON(ctx, "/xapi/v1/CallLogs", timeRangeQuery(from, to), &resp); err != nil {
		return nil, err
	}
	out := make([]models.CallRecord, 0, len(resp.Value))
	for _, c := range resp.Value {
		out = append(out, c.normalize())
	}
	return out, nil
}

func (a *ThreeCX) SystemLogs(ctx context.Context, from, to time.Time) ([]models.SystemLogEntry, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []struct {
			TimeGenerated time.Time `json:"TimeGenerated"`
			Type          string    `json:"Type"`
			Source        string    `json:"Source"`
			Message       string    `json:"Message"`
		} `json:"value"`
	}
	if err := cli.getJSON(ctx, "/xapi/v1/EventLogs", timeRangeQuery(from, to), &resp); err != nil {
		return nil, err
	}
	out := make([]models.SystemLogEntry, 0, len(resp.Value))
	for _, e := range resp.Value {
		out = append(out, models.SystemLogEntry{
			Timestamp: e.TimeGenerated,
			Level:     strings.ToLower(e.Type),
			Service:   e.Source,
			Message:   e.Message,
		})
	}
	return out, nil
}

func (a *ThreeCX) Extensions(ctx context.Context) ([]models.Extension, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []struct {
			Number        string `json:"Number"`
			DisplayName   string `json:"DisplayName"`
			IsRegistered  bool   `json:"IsRegistered"`
			CurrentStatus string `json:"CurrentProfileName"`
		} `json:"value"`
	}
	if err := cli.getJSON(ctx, "/xapi/v1/Extensions", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Extension, 0, len(resp.Value))
	for _, e := range resp.Value {
		out = append(out, models.Extension{
			Number:     e.Number,
			Name:       e.DisplayName,
			Registered: e.IsRegistered,
			Status:     strings.ToLower(e.CurrentStatus),
		})
	}
	return out, nil
}

func (a *ThreeCX) QueueStatus(ctx context.Context) ([]models.QueueStatus, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []struct {
			Number          string  `json:"Number"`
			Name            string  `json:"Name"`
			CallsWaiting    int     `json:"CallsWaiting"`
			AgentsLoggedIn  int     `json:"AgentsLoggedIn"`
			AgentsAvailable int     `json:"AgentsAvailable"`
			LongestWaitTime int     `json:"LongestWaitTime"`
			ServiceLevel    float64 `json:"ServiceLevel"`
		} `json:"value"`
	}
	if err := cli.getJSON(ctx, "/xapi/v1/Queues", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.QueueStatus, 0, len(resp.Value))
	for _, q := range resp.Value {
		out = append(out, models.QueueStatus{
			ID:              q.Number,
			Name:            q.Name,
			Waiting:         q.CallsWaiting,
			AgentsLoggedIn:  q.AgentsLoggedIn,
			AgentsAvailable: q.AgentsAvailable,
			LongestWaitSec:  q.LongestWaitTime,
			ServiceLevelPct: q.ServiceLevel,
		})
	}
	return out, nil
}

func (a *ThreeCX) Recordings(ctx context.Context, from, to time.Time) ([]models.Recording, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []struct {
			Id        string    `json:"Id"`
			CallId    string    `json:"CallId"`
			Extension string    `json:"Extension"`
			Duration  int       `json:"Duration"`
			StartTime time.Time `json:"StartTime"`
			Score     float64   `json:"QualityScore"`
			Url       string    `json:"Url"`
		} `json:"value"`
	}
	if err := cli.getJSON(ctx, "/xapi/v1/Recordings", timeRangeQuery(from, to), &resp); err != nil {
		return nil, err
	}
	out := make([]models.Recording, 0, len(resp.Value))
	for _, r := range resp.Value {
		out = append(out, models.Recording{
			ID:          r.Id,
			CallID:      r.CallId,
			Agent:       r.Extension,
			DurationSec: r.Duration,
			StartedAt:   r.StartTime,
			Score:       r.Score,
			URL:         r.Url,
		})
	}
	return out, nil
}

func (a *ThreeCX) Trunks(ctx context.Context) ([]models.Trunk, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []struct {
			Name          string `json:"Name"`
			Host          string `json:"Host"`
			IsRegistered  bool   `json:"IsRegistered"`
			SimCallsInUse int    `json:"SimCallsInUse"`
			SimCalls      int    `json:"SimCalls"`
		} `json:"value"`
	}
	if err := cli.getJSON(ctx, "/xapi/v1/Trunks", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Trunk, 0, len(resp.Value))
	for _, t := range resp.Value {
		status := "unregistered"
		if t.IsRegistered {
			status = "registered"
		}
		out = append(out, models.Trunk{
			ID:            t.Name,
			Provider:      t.Host,
			Status:        status,
			ChannelsInUse: t.SimCallsInUse,
			ChannelsTotal: t.SimCalls,
		})
	}
	return out, nil
}

// DIDNumbers is the 3CX-specific extra behind the DIDProvider capability.
func (a *ThreeCX) DIDNumbers(ctx context.Context) ([]models.DIDNumber, error) {
	cli, err := a.client()
	if err != nil {
		return nil, err
	}
	var resp struct {
		Value []struct {
			Number      string `json:"Number"`
			RoutesTo    string `json:"RoutesTo"`
			IsActivated bool   `json:"IsActivated"`
		} `json:"value"`
	}
	if err := cli.getJSON(ctx, "/xapi/v1/Dids", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.DIDNumber, 0, len(resp.Value))
	for _, d := range resp.Value {
		out = append(out, models.DIDNumber{Number: d.Number, Destination: d.RoutesTo, Enabled: d.IsActivated})
	}
	return out, nil
}

func (a *ThreeCX) ClearCache(ctx context.Context) error {
	return a.maintenance(ctx, "/xapi/v1/System/ClearCache")
}

func (a *ThreeCX) RestartServices(ctx context.Context) error {
	return a.maintenance(ctx, "/xapi/v1/System/RestartServices")
}

func (a *ThreeCX) EmergencyStop(ctx context.Context) error {
	return a.maintenance(ctx, "/xapi/v1/System/EmergencyStop")
}

func (a *ThreeCX) maintenance(ctx context.Context, path string) error {
	cli, err := a.client()
	if err != nil {
		return err
	}
	return cli.postJSON(ctx, path, nil, nil)
}

// 3CX wire shapes.

type threeCXStatus struct {
	Version              string  `json:"Version"`
	CPUUsage             float64 `json:"CpuUsage"`
	FreeMemory           int64   `json:"FreePhysicalMemory"`
	TotalMemory          int64   `json:"TotalPhysicalMemory"`
	FreeDiskSpace        int64   `json:"FreeDiskSpace"`
	TotalDiskSpace       int64   `json:"TotalDiskSpace"`
	UptimeSeconds        int64   `json:"UptimeSeconds"`
	ExtensionsRegistered int     `json:"ExtensionsRegistered"`
	ExtensionsTotal      int     `json:"ExtensionsTotal"`
	QueuesTotal          int     `json:"QueuesTotal"`
	CallsActive          int     `json:"CallsActive"`
}

type threeCXCallStats struct {
	TotalCalls    int     `json:"TotalCalls"`
	AnsweredCount int     `json:"AnsweredCount"`
	MissedCount   int     `json:"MissedCount"`
	AvgTalkingDur float64 `json:"AvgTalkingDuration"`
	AvgWaitingDur float64 `json:"AvgWaitingDuration"`
}

type threeCXCall struct {
	Id          string    `json:"Id"`
	Caller      string    `json:"CallerNumber"`
	Callee      string    `json:"CalleeNumber"`
	Direction   string    `json:"Direction"`
	Status      string    `json:"Status"`
	Duration    int       `json:"Duration"`
	StartTime   time.Time `json:"StartTime"`
	Trunk       string    `json:"TrunkName"`
	Cost        float64   `json:"Cost"`
	Mos         float64   `json:"Mos"`
	Jitter      float64   `json:"JitterMs"`
	Latency     float64   `json:"LatencyMs"`
	PacketLoss  float64   `json:"PacketLossPercent"`
	HasQuality  bool      `json:"HasQualityReport"`
	IsAnswered  bool      `json:"IsAnswered"`
	IsInbound   bool      `json:"IsInbound"`
	IsInternal  bool      `json:"IsInternal"`
	FailedCause string    `json:"FailedCause"`
}

func (c threeCXCall) normalize() models.CallRecord {
	rec := models.CallRecord{
		ID:          c.Id,
		From:        c.Caller,
		To:          c.Callee,
		Type:        c.callType(),
		Status:      strings.ToLower(c.Status),
		DurationSec: c.Duration,
		StartedAt:   c.StartTime,
		Trunk:       c.Trunk,
		Cost:        c.Cost,
	}
	if c.HasQuality {
		rec.Quality = &models.CallQuality{
			MOS:           c.Mos,
			JitterMs:      c.Jitter,
			LatencyMs:     c.Latency,
			PacketLossPct: c.PacketLoss,
		}
	}
	return rec
}

func (c threeCXCall) callType() models.CallType {
	switch {
	case c.FailedCause != "":
		return models.CallFailed
	case c.IsInbound && !c.IsAnswered:
		return models.CallMissed
	case c.IsInternal:
		return models.CallInternal
	case c.IsInbound:
		return models.CallInbound
	default:
		return models.CallOutbound
	}
}

func pctOf(used, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
