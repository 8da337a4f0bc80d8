// Package server provides HTTP routing, middleware, and operator endpoints for app integrations.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Operator Endpoints
//
// [OperatorHandler] exposes the mirroring operations that app frontends invoke:
//   - GET /health reports service liveness
//   - GET /operators lists operator descriptors for placement menus
//   - POST /operators/open_mlflow_panel returns the panel trigger payload
//   - POST /operators/get_mlflow_experiment_urls resolves a dataset's experiment links
//
// Operator endpoints read registry state; mutation happens through the CLI.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
