package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/models"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/pbx"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/supervisor"
	"github.com/kinglui2/voip-monitoring-tool-sub000/internal/utils"
)

// WebhookNotifier forwards new alerts to an external webhook (chat
// integrations, paging bridges). Best-effort: a failed delivery is logged
// and dropped, never retried against the alert workflow.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *utils.Logger
}

func NewWebhookNotifier(url string, logger *utils.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 8 * time.Second},
		logger: logger,
	}
}

type webhookPayload struct {
	Type      string        `json:"type"`
	Alert     *models.Alert `json:"alert"`
	Timestamp string        `json:"timestamp"`
}

// Watch consumes the supervisor event stream and posts every new alert.
// Returns when the subscription closes.
func (n *WebhookNotifier) Watch(events *pbx.Broker) {
	if n.url == "" {
		return
	}
	sub := events.Subscribe(16)
	defer sub.Close()
	for ev := range sub.C() {
		if ev.Type != supervisor.EventNewAlert || ev.Alert == nil {
			continue
		}
		n.post(ev.Alert)
	}
}

func (n *WebhookNotifier) post(alert *models.Alert) {
	body, err := json.Marshal(webhookPayload{
		Type:      "newAlert",
		Alert:     alert,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Writef("alert webhook delivery failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Writef("alert webhook returned HTTP %d", resp.StatusCode)
	}
}
