package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Slack struct {
	enabled bool
	webhook string
}

func NewSlack(enabled bool, webhook string) *Slack { return &Slack{enabled, webhook} }

func (s *Slack) Send(text string) error {
	if !s.enabled || s.webhook == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{"text": text})
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Post(s.webhook, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// Format renders one anomaly verdict for the webhook channel.
func Format(detectorName string, value, timeIndex float64) string {
	return fmt.Sprintf(":rotating_light: *Anomaly* detector=`%s` value=%.4f t=%.0f", detectorName, value, timeIndex)
}
