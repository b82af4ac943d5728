package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/version"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/ws"
)

// SystemHandlers reports the health of the monitoring host itself, as
// opposed to the PBXes it watches.
type SystemHandlers struct {
	hub       *ws.Hub
	startedAt time.Time
}

func NewSystemHandlers(hub *ws.Hub) *SystemHandlers {
	return &SystemHandlers{hub: hub, startedAt: time.Now()}
}

// Health returns host CPU/memory/disk usage, process uptime, version and
// the live WebSocket client count. Individual probe failures zero the
// field rather than failing the endpoint.
func (h *SystemHandlers) Health(c *gin.Context) {
	var cpuPct float64
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		cpuPct = pcts[0]
	}
	var memPct float64
	if vm, err := mem.VirtualMemory(); err == nil {
		memPct = vm.UsedPercent
	}
	var diskPct float64
	if du, err := disk.Usage("/"); err == nil {
		diskPct = du.UsedPercent
	}
	var hostUptime uint64
	if up, err := host.Uptime(); err == nil {
		hostUptime = up
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"version":         version.String(),
		"cpu_pct":         cpuPct,
		"memory_pct":      memPct,
		"disk_pct":        diskPct,
		"host_uptime_sec": hostUptime,
		"uptime_sec":      int64(time.Since(h.startedAt).Seconds()),
		"ws_clients":      h.hub.ClientCount(),
	})
}
