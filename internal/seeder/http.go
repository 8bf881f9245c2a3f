package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/paddock/internal/domain/types"
	"github.com/okian/paddock/pkg/logger"
)

// HTTPClient wraps http.Client with JSON helpers.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes the body of a successful GET into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.Unmarshal(body, v)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submission is the outcome of posting one activity.
type submission struct {
	horseID string
	result  string
}

// submitActivities posts every activity using a pool of workers. It returns
// the ids of horses that lost at least one activity.
func submitActivities(ctx context.Context, cfg *Config, horses []Horse, stats *Stats) map[string]bool {
	log := logger.Get().Named("seeder")
	total := countActivities(horses)
	log.Info(ctx, "submitting activities", logger.Int("activities", total), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/activities"

	var submitted, accepted, duplicate, failed atomic.Int64

	jobs := make(chan types.ActivityPayload, cfg.Workers*workerChannelMultiplier)
	results := make(chan submission, cfg.Workers*workerChannelMultiplier)

	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				result := submitWithRetry(ctx, client, url, a)
				submitted.Add(1)
				switch result {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
				results <- submission{horseID: a.HorseID, result: result}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range horses {
			for _, a := range horses[i].Activities {
				select {
				case <-ctx.Done():
					return
				case jobs <- a:
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	incomplete := make(map[string]bool)
	for done := false; !done; {
		select {
		case s, ok := <-results:
			if !ok {
				done = true
				break
			}
			if s.result == resultFailed {
				incomplete[s.horseID] = true
			}
		case <-ticker.C:
			log.Info(ctx, "submission progress",
				logger.Int64("submitted", submitted.Load()),
				logger.Int("total", total),
				logger.Int64("failed", failed.Load()),
			)
		}
	}

	stats.ActivitiesSubmitted = int(submitted.Load())
	stats.ActivitiesAccepted = int(accepted.Load())
	stats.ActivitiesDuplicate = int(duplicate.Load())
	stats.ActivitiesFailed = int(failed.Load())

	log.Info(ctx, "activity submission completed",
		logger.Int("accepted", stats.ActivitiesAccepted),
		logger.Int("duplicate", stats.ActivitiesDuplicate),
		logger.Int("failed", stats.ActivitiesFailed),
	)
	return incomplete
}

// submitWithRetry posts one activity, backing off while the service reports
// backpressure.
func submitWithRetry(ctx context.Context, client *HTTPClient, url string, a types.ActivityPayload) string { //nolint:gocritic // hugeParam: payload by value
	for attempt := 1; ; attempt++ {
		result, retry := submitSingleActivity(ctx, client, url, a)
		if !retry || attempt == maxSubmitAttempts {
			return result
		}
		select {
		case <-ctx.Done():
			return resultFailed
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
}

func submitSingleActivity(ctx context.Context, client *HTTPClient, url string, a types.ActivityPayload) (string, bool) { //nolint:gocritic // hugeParam: payload by value
	resp, err := client.Post(ctx, url, a)
	if err != nil {
		return resultFailed, false
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed, false
	}

	var ack types.Ack
	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultAccepted, false
	case http.StatusOK:
		if err := json.Unmarshal(body, &ack); err == nil && !ack.Duplicate {
			return resultAccepted, false
		}
		return resultDuplicate, false
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return resultFailed, true
	default:
		return resultFailed, false
	}
}
