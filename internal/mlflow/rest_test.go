package mlflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/mfx/internal/shared"
)

func TestRESTClient(t *testing.T) {
	t.Run("NewRESTClient", func(t *testing.T) {
		t.Run("creates client with default URI", func(t *testing.T) {
			if c := NewRESTClient(""); c == nil {
				t.Fatal("expected client to be created")
			} else if c.baseURI != defaultTrackingURI {
				t.Errorf("expected baseURI to be %s, got %s", defaultTrackingURI, c.baseURI)
			}
		})

		t.Run("creates client with custom URI", func(t *testing.T) {
			customURI := "http://mlflow.internal:5000"
			if c := NewRESTClient(customURI); c.BaseURI() != customURI {
				t.Errorf("expected baseURI to be %s, got %s", customURI, c.BaseURI())
			}
		})
	})

	t.Run("Name", func(t *testing.T) {
		if c := NewRESTClient(""); c.Name() != "MLflow" {
			t.Errorf("expected name to be 'MLflow', got %s", c.Name())
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		ctx := context.Background()

		t.Run("static token", func(t *testing.T) {
			c := NewRESTClient("")
			if err := c.Authenticate(ctx, map[string]string{"token": "tok123"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if c.token != "tok123" {
				t.Errorf("expected token tok123, got %s", c.token)
			}
		})

		t.Run("empty credentials stay anonymous", func(t *testing.T) {
			c := NewRESTClient("")
			if err := c.Authenticate(ctx, map[string]string{}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if c.token != "" {
				t.Errorf("expected no token, got %s", c.token)
			}
		})

		t.Run("partial oauth credentials fail", func(t *testing.T) {
			c := NewRESTClient("")
			err := c.Authenticate(ctx, map[string]string{"client_id": "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("full oauth credentials replace http client", func(t *testing.T) {
			c := NewRESTClient("")
			credentials := map[string]string{
				"client_id":     "id",
				"client_secret": "secret",
				"token_url":     "http://auth.local/token",
			}
			if err := c.Authenticate(ctx, credentials); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if c.httpClient == http.DefaultClient {
				t.Error("expected oauth2 http client to replace the default")
			}
		})
	})

	t.Run("GetExperimentByName", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/2.0/mlflow/experiments/get-by-name" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Method != http.MethodGet {
				t.Errorf("expected GET method, got %s", r.Method)
			}
			if got := r.URL.Query().Get("experiment_name"); got != "exp1" {
				t.Errorf("expected experiment_name exp1, got %s", got)
			}
			if r.Header.Get("Authorization") != "Bearer tok123" {
				t.Errorf("expected bearer token header")
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"experiment": map[string]any{
					"experiment_id":     "42",
					"name":              "exp1",
					"artifact_location": "s3://bucket/exp1",
					"lifecycle_stage":   "active",
					"creation_time":     1700000000000,
					"tags": []map[string]string{
						{"key": "team", "value": "vision"},
					},
				},
			})
		}))
		defer server.Close()

		c := NewRESTClient(server.URL)
		c.token = "tok123"

		exp, err := c.GetExperimentByName(context.Background(), "exp1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if exp.ExperimentID != "42" {
			t.Errorf("expected experiment_id 42, got %s", exp.ExperimentID)
		}
		if exp.ArtifactLocation != "s3://bucket/exp1" {
			t.Errorf("unexpected artifact location %s", exp.ArtifactLocation)
		}
		if exp.CreationTime != 1700000000000 {
			t.Errorf("unexpected creation time %d", exp.CreationTime)
		}
		if tags := exp.TagMap(); tags["team"] != "vision" {
			t.Errorf("expected tag team=vision, got %v", tags)
		}
	})

	t.Run("GetExperimentByName not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error_code": "RESOURCE_DOES_NOT_EXIST",
				"message":    "Could not find experiment with name 'nope'",
			})
		}))
		defer server.Close()

		c := NewRESTClient(server.URL)

		_, err := c.GetExperimentByName(context.Background(), "nope")
		if !errors.Is(err, shared.ErrExperimentNotFound) {
			t.Errorf("expected ErrExperimentNotFound, got %v", err)
		}
	})

	t.Run("GetExperimentByName empty name", func(t *testing.T) {
		c := NewRESTClient("")
		if _, err := c.GetExperimentByName(context.Background(), ""); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("GetRun", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/2.0/mlflow/runs/get" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("run_id"); got != "run123" {
				t.Errorf("expected run_id run123, got %s", got)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"run": map[string]any{
					"info": map[string]any{
						"run_id":        "run123",
						"run_uuid":      "run123",
						"experiment_id": "42",
						"artifact_uri":  "s3://bucket/exp1/run123/artifacts",
						"status":        "FINISHED",
					},
					"data": map[string]any{
						"metrics": []map[string]any{
							{"key": "loss", "value": 0.12, "timestamp": 1700000001000, "step": 10},
						},
						"tags": []map[string]string{
							{"key": "mlflow.runName", "value": "My-Run"},
						},
					},
				},
			})
		}))
		defer server.Close()

		c := NewRESTClient(server.URL)

		run, err := c.GetRun(context.Background(), "run123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if run.Info.RunUUID != "run123" {
			t.Errorf("expected run_uuid run123, got %s", run.Info.RunUUID)
		}
		if run.Info.ExperimentID != "42" {
			t.Errorf("expected experiment_id 42, got %s", run.Info.ExperimentID)
		}
		if metrics := run.MetricMap(); metrics["loss"] != 0.12 {
			t.Errorf("expected metric loss=0.12, got %v", metrics)
		}

		name, err := run.DisplayName()
		if err != nil {
			t.Fatalf("expected display name, got %v", err)
		}
		if name != "My-Run" {
			t.Errorf("expected display name My-Run, got %s", name)
		}
	})

	t.Run("GetRun not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error_code": "RESOURCE_DOES_NOT_EXIST",
				"message":    "Run 'nope' not found",
			})
		}))
		defer server.Close()

		c := NewRESTClient(server.URL)

		_, err := c.GetRun(context.Background(), "nope")
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("DisplayName missing tag", func(t *testing.T) {
		run := &Run{Data: RunData{Tags: []RunTag{{Key: "other", Value: "x"}}}}
		if _, err := run.DisplayName(); !errors.Is(err, shared.ErrMissingRunName) {
			t.Errorf("expected ErrMissingRunName, got %v", err)
		}
	})

	t.Run("SearchRuns paginates", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/2.0/mlflow/runs/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("expected POST method, got %s", r.Method)
			}

			var body struct {
				ExperimentIDs []string `json:"experiment_ids"`
				PageToken     string   `json:"page_token"`
			}
			json.NewDecoder(r.Body).Decode(&body)

			if len(body.ExperimentIDs) != 1 || body.ExperimentIDs[0] != "42" {
				t.Errorf("expected experiment_ids [42], got %v", body.ExperimentIDs)
			}

			calls++
			w.Header().Set("Content-Type", "application/json")
			if calls == 1 {
				if body.PageToken != "" {
					t.Errorf("expected empty page token on first call, got %s", body.PageToken)
				}
				json.NewEncoder(w).Encode(map[string]any{
					"runs":            []map[string]any{{"info": map[string]any{"run_id": "r1"}}},
					"next_page_token": "page2",
				})
			} else {
				if body.PageToken != "page2" {
					t.Errorf("expected page token page2, got %s", body.PageToken)
				}
				json.NewEncoder(w).Encode(map[string]any{
					"runs": []map[string]any{{"info": map[string]any{"run_id": "r2"}}},
				})
			}
		}))
		defer server.Close()

		c := NewRESTClient(server.URL)

		runs, err := c.SearchRuns(context.Background(), "42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].Info.RunID != "r1" || runs[1].Info.RunID != "r2" {
			t.Errorf("unexpected run ids: %s, %s", runs[0].Info.RunID, runs[1].Info.RunID)
		}
		if calls != 2 {
			t.Errorf("expected 2 API calls, got %d", calls)
		}
	})

	t.Run("SearchExperiments", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/2.0/mlflow/experiments/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"experiments": []map[string]any{
					{"experiment_id": "42", "name": "exp1"},
					{"experiment_id": "43", "name": "exp2"},
				},
			})
		}))
		defer server.Close()

		c := NewRESTClient(server.URL)

		experiments, err := c.SearchExperiments(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(experiments) != 2 {
			t.Fatalf("expected 2 experiments, got %d", len(experiments))
		}
		if experiments[1].Name != "exp2" {
			t.Errorf("expected second experiment exp2, got %s", experiments[1].Name)
		}
	})

	t.Run("server error propagates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"error_code": "INTERNAL_ERROR",
				"message":    "boom",
			})
		}))
		defer server.Close()

		c := NewRESTClient(server.URL)

		_, err := c.GetRun(context.Background(), "run123")
		if err == nil {
			t.Fatal("expected error for 500 response")
		}
		if errors.Is(err, shared.ErrRunNotFound) {
			t.Error("internal error should not map to not-found")
		}
	})
}
