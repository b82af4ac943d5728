package models

// SettingsThresholds are the per-user alerting thresholds applied on the
// supervisor dashboard.
type SettingsThresholds struct {
	MaxWaitSec         int     `json:"max_wait_sec"`
	MaxQueueLength     int     `json:"max_queue_length"`
	MinServiceLevelPct float64 `json:"min_service_level_pct"`
}

// SupervisorSettings is the per-user preference blob. Users without stored
// settings get DefaultSupervisorSettings; the default is only persisted when
// the user explicitly saves.
type SupervisorSettings struct {
	RefreshIntervalSec int                `json:"refresh_interval_sec"`
	AlertNotifications bool               `json:"alert_notifications"`
	SoundAlerts        bool               `json:"sound_alerts"`
	ShowOfflineAgents  bool               `json:"show_offline_agents"`
	Thresholds         SettingsThresholds `json:"thresholds"`
}

// DefaultSupervisorSettings returns the hardcoded default preference shape.
func DefaultSupervisorSettings() SupervisorSettings {
	return SupervisorSettings{
		RefreshIntervalSec: 30,
		AlertNotifications: true,
		SoundAlerts:        false,
		ShowOfflineAgents:  true,
		Thresholds: SettingsThresholds{
			MaxWaitSec:         120,
			MaxQueueLength:     10,
			MinServiceLevelPct: 80,
		},
	}
}
