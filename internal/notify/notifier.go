// Package notify reports finished batch runs back to the task-scheduling
// platform. The platform keys runs by job name and expects an END_JOB
// callback with a four-digit result code.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/efund/unitperf/internal/scheduler"
	"github.com/efund/unitperf/pkg/config"
	"github.com/efund/unitperf/pkg/httputil"
	"github.com/efund/unitperf/pkg/logger"
)

const (
	codeSuccess = "0000"
	codeFailure = "0001"

	callbackPath = "/autoapi/job/response"
)

// callbackPayload is the task-platform END_JOB envelope.
type callbackPayload struct {
	Code    string `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Type    string `json:"type"`
	JobKey  string `json:"jobKey"`
}

// Notifier posts job completion callbacks to the task platform.
type Notifier struct {
	client *httputil.Client
	cfg    config.CallbackConfig
	logger *logger.Logger
}

// New creates a new notifier. When the callback is disabled every report
// becomes a no-op, so callers never need to branch on configuration.
func New(cfg config.CallbackConfig, log *logger.Logger) *Notifier {
	return &Notifier{
		client: httputil.NewWithTimeout(log, 10*time.Second),
		cfg:    cfg,
		logger: log,
	}
}

// JobCompleted reports one finished run to the platform.
func (n *Notifier) JobCompleted(ctx context.Context, jobKey string, success bool, message string) error {
	if !n.cfg.Enabled || n.cfg.URL == "" {
		return nil
	}

	payload := callbackPayload{
		Code:    codeSuccess,
		Success: success,
		Message: message,
		Type:    "END_JOB",
		JobKey:  jobKey,
	}
	if !success {
		payload.Code = codeFailure
	}

	url := n.cfg.URL + callbackPath
	n.logger.WithFields(map[string]interface{}{
		"job_key": jobKey,
		"url":     url,
	}).Info("Sending task callback")

	resp, err := n.client.PostJSON(ctx, url, payload)
	if err != nil {
		return fmt.Errorf("failed to post task callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("task callback rejected: status %d", resp.StatusCode)
	}
	return nil
}

// Hook adapts the notifier to the scheduler's completion hook. Callback
// failures are logged, never propagated into job status.
func (n *Notifier) Hook() scheduler.CompletionHook {
	return func(result scheduler.JobResult) {
		message := "completed"
		if !result.Success {
			message = result.Error
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := n.JobCompleted(ctx, result.JobName, result.Success, message); err != nil {
			n.logger.WithFields(map[string]interface{}{
				"job":   result.JobName,
				"error": err.Error(),
			}).Warn("Task callback failed")
		}
	}
}
