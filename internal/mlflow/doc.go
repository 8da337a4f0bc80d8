// Package mlflow defines the [Client] interface for MLflow tracking servers and implements it over the MLflow REST API.
//
// # Client Interface
//
// All tracking operations go through a common abstraction, keeping the mirror
// engine decoupled from the wire protocol and easy to test with doubles.
//
// # REST Implementation
//
// [RESTClient] speaks the MLflow 2.x REST API (/api/2.0/mlflow/...).
//
// Entity lookups use GET endpoints (experiments/get-by-name, runs/get);
// search endpoints use POST bodies and paginate via page tokens.
//
// # Authentication
//
// Three modes, selected by the credentials passed to Authenticate:
//   - no credentials: anonymous, for local tracking servers
//   - "token": static bearer token attached to every request
//   - "client_id"/"client_secret"/"token_url": OAuth2 client-credentials flow
//     via [clientcredentials.Config]; the oauth2 client refreshes tokens
//     automatically
//
// # Error Handling
//
// The REST API reports failures as {"error_code", "message"} bodies. The
// client surfaces RESOURCE_DOES_NOT_EXIST as the typed errors from the
// shared package:
//   - [shared.ErrExperimentNotFound] : no experiment matches the given name
//   - [shared.ErrRunNotFound] : no run matches the given id
//   - [shared.ErrAPIRequest] : any other non-2xx response
//
// # Entity Mappings
//
// REST entities keep MLflow's list-of-pairs shape for tags, params, and
// metrics; the TagMap/MetricMap helpers flatten them into the maps the
// registry records store.
package mlflow
