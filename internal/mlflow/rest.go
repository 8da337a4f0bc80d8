// MLflow REST API implementation of [Client]
//
// Endpoint shapes based on https://mlflow.org/docs/latest/rest-api.html
package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mfx/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultTrackingURI = "http://localhost:8080"
	apiPrefix          = "/api/2.0/mlflow"

	// Error code the REST API reports for missing entities
	codeDoesNotExist = "RESOURCE_DOES_NOT_EXIST"
)

// apiError is a decoded MLflow REST error body.
type apiError struct {
	StatusCode int
	Code       string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mlflow API error (status %d): %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("mlflow API error: status %d", e.StatusCode)
}

// RESTClient implements the Client interface against an MLflow tracking server.
type RESTClient struct {
	baseURI    string
	token      string
	httpClient *http.Client
}

// NewRESTClient creates a new MLflow tracking client.
func NewRESTClient(baseURI string) *RESTClient {
	if baseURI == "" {
		baseURI = defaultTrackingURI
	}

	return &RESTClient{
		baseURI:    baseURI,
		httpClient: http.DefaultClient,
	}
}

// Name returns the backend name.
func (c *RESTClient) Name() string {
	return "MLflow"
}

// BaseURI returns the tracking server URL the client targets.
func (c *RESTClient) BaseURI() string {
	return c.baseURI
}

// Authenticate configures credentials for subsequent requests.
//
// Supports a static bearer token via credentials["token"], or the OAuth2
// client-credentials flow via "client_id", "client_secret", and "token_url".
// Empty credentials leave the client anonymous.
func (c *RESTClient) Authenticate(ctx context.Context, credentials map[string]string) error {
	clientID := credentials["client_id"]
	clientSecret := credentials["client_secret"]
	tokenURL := credentials["token_url"]

	if clientID != "" || clientSecret != "" || tokenURL != "" {
		if clientID == "" || clientSecret == "" || tokenURL == "" {
			return fmt.Errorf("%w: client_id, client_secret, and token_url are all required for OAuth2", shared.ErrMissingCredentials)
		}

		config := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
		c.httpClient = config.Client(ctx)
		return nil
	}

	if token, ok := credentials["token"]; ok && token != "" {
		c.token = token
	}

	return nil
}

// doRequest performs an HTTP request against the tracking server API.
func (c *RESTClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	apiURL := c.baseURI + apiPrefix + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{StatusCode: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// notFound reports whether an error is the API's missing-entity response.
func notFound(err error) bool {
	apiErr, ok := err.(*apiError)
	return ok && (apiErr.Code == codeDoesNotExist || apiErr.StatusCode == http.StatusNotFound)
}

// GetExperimentByName retrieves experiment metadata by display name.
//
// Calls GET /experiments/get-by-name.
func (c *RESTClient) GetExperimentByName(ctx context.Context, name string) (*Experiment, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: experiment name", shared.ErrMissingArgument)
	}

	endpoint := "/experiments/get-by-name?experiment_name=" + url.QueryEscape(name)

	var response struct {
		Experiment Experiment `json:"experiment"`
	}

	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrExperimentNotFound, name)
		}
		return nil, err
	}

	return &response.Experiment, nil
}

// GetRun retrieves a single run by its tracking-server id.
//
// Calls GET /runs/get.
func (c *RESTClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	endpoint := "/runs/get?run_id=" + url.QueryEscape(runID)

	var response struct {
		Run Run `json:"run"`
	}

	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, runID)
		}
		return nil, err
	}

	return &response.Run, nil
}

// SearchExperiments retrieves all active experiments, following page tokens.
//
// Calls POST /experiments/search.
func (c *RESTClient) SearchExperiments(ctx context.Context) ([]Experiment, error) {
	var all []Experiment
	pageToken := ""

	for {
		body := map[string]any{"max_results": 100}
		if pageToken != "" {
			body["page_token"] = pageToken
		}

		var response struct {
			Experiments   []Experiment `json:"experiments"`
			NextPageToken string       `json:"next_page_token"`
		}

		if err := c.doRequest(ctx, http.MethodPost, "/experiments/search", body, &response); err != nil {
			return nil, err
		}

		all = append(all, response.Experiments...)

		if response.NextPageToken == "" {
			break
		}
		pageToken = response.NextPageToken
	}

	return all, nil
}

// SearchRuns retrieves all runs belonging to the given experiment, following page tokens.
//
// Calls POST /runs/search.
func (c *RESTClient) SearchRuns(ctx context.Context, experimentID string) ([]Run, error) {
	if experimentID == "" {
		return nil, fmt.Errorf("%w: experiment id", shared.ErrMissingArgument)
	}

	var all []Run
	pageToken := ""

	for {
		body := map[string]any{
			"experiment_ids": []string{experimentID},
			"max_results":    100,
		}
		if pageToken != "" {
			body["page_token"] = pageToken
		}

		var response struct {
			Runs          []Run  `json:"runs"`
			NextPageToken string `json:"next_page_token"`
		}

		if err := c.doRequest(ctx, http.MethodPost, "/runs/search", body, &response); err != nil {
			return nil, err
		}

		all = append(all, response.Runs...)

		if response.NextPageToken == "" {
			break
		}
		pageToken = response.NextPageToken
	}

	return all, nil
}
