// Package extraction drives one file through the remote parse-job lifecycle:
// create → upload → start → poll → download → unpack. All failure paths
// resolve to an ExtractionResult value carrying a diagnostic; the orchestrator
// never returns an error to its caller.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/retention/internal/domain"
	"github.com/timmy/retention/internal/logger"
	"github.com/timmy/retention/internal/retry"
)

// Config holds orchestrator configuration.
type Config struct {
	BaseURL      string // parse-job API base URL
	APIKey       string
	HTTPTimeout  time.Duration
	PollInterval time.Duration // fixed interval between status polls
	PollTimeout  time.Duration // wall-clock budget for the whole poll phase
	Retry        retry.Policy
}

// Orchestrator runs the remote extraction job state machine for one file at
// a time. Safe for concurrent use; all per-file state lives on the stack.
type Orchestrator struct {
	api          *resty.Client // job API, bearer-authenticated
	transfer     *resty.Client // presigned upload/download URLs, no auth
	policy       retry.Policy
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewOrchestrator creates an orchestrator against the parse-job API.
func NewOrchestrator(cfg *Config) *Orchestrator {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout == 0 {
		pollTimeout = 10 * time.Minute
	}

	api := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Authorization", "Bearer "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	transfer := resty.New().SetTimeout(timeout)

	return &Orchestrator{
		api:          api,
		transfer:     transfer,
		policy:       cfg.Retry,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

type createJobResponse struct {
	JobID string `json:"job_id"`
}

type fileURL struct {
	FileURL string `json:"file_url"`
}

type uploadURLsRequest struct {
	JobID string   `json:"job_id"`
	Files []string `json:"files"`
}

type uploadURLsResponse struct {
	UploadURLs map[string]fileURL `json:"upload_urls"`
}

type jobStatusResponse struct {
	JobState     string `json:"job_state"` // Created | Running | Completed | Failed
	ErrorMessage string `json:"error_message,omitempty"`
}

type downloadURLsResponse struct {
	DownloadURLs map[string]fileURL `json:"download_urls"`
}

// Extract runs the full job lifecycle for one file. A fatal outcome at any
// step short-circuits the remaining steps and yields an ExtractionResult with
// empty text and an error diagnostic in the stats map.
func (o *Orchestrator) Extract(ctx context.Context, file domain.ScannedFile) domain.ExtractionResult {
	ctx = logger.WithFields(ctx, logger.Fields{logger.FieldFile: file.Path})

	data, err := os.ReadFile(file.Path)
	if err != nil {
		logger.CtxError(ctx, "Cannot read file for extraction: %v", err)
		return domain.FailedExtraction(fmt.Sprintf("cannot read file: %v", err))
	}

	job, err := o.createJob(ctx)
	if err != nil {
		logger.CtxError(ctx, "Job creation failed: %v", err)
		return domain.FailedExtraction(err.Error())
	}
	ctx = logger.WithField(ctx, logger.FieldJobID, job.ID)

	name := filepath.Base(file.Path)
	target, err := o.uploadTarget(ctx, job.ID, name)
	if err != nil {
		logger.CtxError(ctx, "Upload target resolution failed: %v", err)
		return domain.FailedExtraction(err.Error())
	}

	if err := o.upload(ctx, target, name, data); err != nil {
		logger.CtxError(ctx, "Upload failed: %v", err)
		return domain.FailedExtraction(err.Error())
	}
	job.Advance(domain.JobStateUploaded)

	if err := o.start(ctx, job.ID); err != nil {
		logger.CtxError(ctx, "Job start failed: %v", err)
		return domain.FailedExtraction(err.Error())
	}
	job.Advance(domain.JobStateStarted)

	if err := o.waitForCompletion(ctx, job); err != nil {
		logger.CtxError(ctx, "Job did not complete: %v", err)
		return domain.FailedExtraction(err.Error())
	}

	text, err := o.downloadResult(ctx, job.ID)
	if err != nil {
		logger.CtxError(ctx, "Result download failed: %v", err)
		return domain.FailedExtraction(err.Error())
	}

	logger.CtxInfo(ctx, "Extraction completed: %d chars", len(text))
	return domain.ExtractionResult{
		Text: text,
		Stats: map[string]interface{}{
			"job_id":     job.ID,
			"status":     string(domain.JobStateCompleted),
			"word_count": len(strings.Fields(text)),
		},
	}
}

// createJob requests a new remote job. An empty job id in the response is
// fatal regardless of HTTP status.
func (o *Orchestrator) createJob(ctx context.Context) (*domain.RemoteJob, error) {
	var created createJobResponse
	_, err := o.policy.Execute(ctx, "create job", func() (*resty.Response, error) {
		return o.api.R().
			SetContext(ctx).
			SetResult(&created).
			Post("/job")
	})
	if err != nil {
		return nil, err
	}
	if created.JobID == "" {
		return nil, errors.New("missing job id in response")
	}
	return domain.NewRemoteJob(created.JobID), nil
}

// uploadTarget resolves the presigned upload location for name. When the
// expected key is absent, the first available location is taken as a
// fallback; no location at all is fatal.
func (o *Orchestrator) uploadTarget(ctx context.Context, jobID, name string) (string, error) {
	var urls uploadURLsResponse
	_, err := o.policy.Execute(ctx, "upload urls", func() (*resty.Response, error) {
		return o.api.R().
			SetContext(ctx).
			SetBody(uploadURLsRequest{JobID: jobID, Files: []string{name}}).
			SetResult(&urls).
			Post("/job/upload-files")
	})
	if err != nil {
		return "", err
	}

	if target, ok := urls.UploadURLs[name]; ok && target.FileURL != "" {
		return target.FileURL, nil
	}
	for _, target := range urls.UploadURLs {
		if target.FileURL != "" {
			return target.FileURL, nil
		}
	}
	return "", fmt.Errorf("no upload url for %q in response", name)
}

func (o *Orchestrator) upload(ctx context.Context, url, name string, data []byte) error {
	_, err := o.policy.Execute(ctx, "upload content", func() (*resty.Response, error) {
		return o.transfer.R().
			SetContext(ctx).
			SetHeader("Content-Type", contentTypeFor(name)).
			SetBody(data).
			Put(url)
	})
	return err
}

func (o *Orchestrator) start(ctx context.Context, jobID string) error {
	_, err := o.policy.Execute(ctx, "start job", func() (*resty.Response, error) {
		return o.api.R().
			SetContext(ctx).
			Post("/job/" + jobID + "/start")
	})
	return err
}

// errTransientPoll marks a status request failure worth another poll cycle.
var errTransientPoll = errors.New("transient poll failure")

// waitForCompletion polls the job status at a fixed interval until a terminal
// state or the wall-clock budget expires, at which point the job is forced to
// TimedOut. Transient poll failures are logged and polling continues; they
// never extend the budget.
func (o *Orchestrator) waitForCompletion(ctx context.Context, job *domain.RemoteJob) error {
	deadline := time.Now().Add(o.pollTimeout)
	job.Advance(domain.JobStatePolling)

	for {
		if time.Now().After(deadline) {
			job.Advance(domain.JobStateTimedOut)
			return fmt.Errorf("job %s timed out after %s", job.ID, o.pollTimeout)
		}

		status, err := o.jobStatus(ctx, job.ID)
		switch {
		case errors.Is(err, errTransientPoll):
			logger.CtxWarn(ctx, "Transient poll failure for job %s, continuing", job.ID)
		case err != nil:
			job.Advance(domain.JobStateFailed)
			return err
		default:
			switch status.JobState {
			case "Completed":
				job.Advance(domain.JobStateCompleted)
				return nil
			case "Failed":
				job.Advance(domain.JobStateFailed)
				msg := status.ErrorMessage
				if msg == "" {
					msg = "no error message provided"
				}
				return fmt.Errorf("job failed remotely: %s", msg)
			}
			job.Advance(domain.JobStatePolling)
		}

		select {
		case <-time.After(o.pollInterval):
		case <-ctx.Done():
			job.Advance(domain.JobStateTimedOut)
			return fmt.Errorf("polling job %s: %w", job.ID, ctx.Err())
		}
	}
}

// jobStatus issues one status request. Retryable classifications map to
// errTransientPoll so the poll loop can continue inside its budget.
func (o *Orchestrator) jobStatus(ctx context.Context, jobID string) (*jobStatusResponse, error) {
	var status jobStatusResponse
	resp, err := o.api.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/job/" + jobID + "/status")

	verdict := o.policy.Classify("job status", resp, err, 0)
	if verdict.Retry {
		logger.CtxDebug(ctx, "Poll attempt failed: %v", verdict.Err)
		return nil, errTransientPoll
	}
	if verdict.Err != nil {
		return nil, verdict.Err
	}
	return &status, nil
}

// downloadResult fetches the result archive and extracts its content.
func (o *Orchestrator) downloadResult(ctx context.Context, jobID string) (string, error) {
	var urls downloadURLsResponse
	_, err := o.policy.Execute(ctx, "download urls", func() (*resty.Response, error) {
		return o.api.R().
			SetContext(ctx).
			SetBody(map[string]interface{}{}).
			SetResult(&urls).
			Post("/job/" + jobID + "/download-files")
	})
	if err != nil {
		return "", err
	}

	var url string
	for _, target := range urls.DownloadURLs {
		if target.FileURL != "" {
			url = target.FileURL
			break
		}
	}
	if url == "" {
		return "", errors.New("no download url in response")
	}

	resp, err := o.policy.Execute(ctx, "download archive", func() (*resty.Response, error) {
		return o.transfer.R().
			SetContext(ctx).
			Get(url)
	})
	if err != nil {
		return "", err
	}

	return unpackArchive(resp.Body())
}

// contentTypeFor infers the upload content type from the file extension.
func contentTypeFor(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "application/pdf"
	}
	return "application/octet-stream"
}
