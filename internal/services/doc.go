// Package services implements the business logic layer of the application.
// It provides a clean separation between HTTP handlers and data access, ensuring
// that business rules are centralized and testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Domain-focused methods that encapsulate business rules
//
// # Service Layer Responsibilities
//
// The service layer is responsible for:
//
//	- Running the upload pipeline (parse, normalize, aggregate)
//	- Master-table merges, snapshots, rebuilds and exports
//	- Recording uploads and merges in the history log
//	- Broadcasting pipeline progress over the websocket hub
//	- Error handling and transformation
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    store  Store
//	    logger *slog.Logger
//	}
//
//	func NewServiceName(store Store, logger *slog.Logger) *ServiceName {
//	    return &ServiceName{
//	        store:  store,
//	        logger: logger,
//	    }
//	}
//
//	func (s *ServiceName) BusinessOperation(ctx context.Context, input Input) (*Output, error) {
//	    // Validate input
//	    if err := input.Validate(); err != nil {
//	        return nil, fmt.Errorf("validation failed: %w", err)
//	    }
//
//	    // Execute business logic
//	    result, err := s.store.Operation(ctx, input)
//	    if err != nil {
//	        s.logger.ErrorContext(ctx, "operation failed",
//	            "error", err,
//	            "input", input,
//	        )
//	        return nil, fmt.Errorf("operation failed: %w", err)
//	    }
//
//	    return result, nil
//	}
//
// # Available Services
//
// The package provides these core services:
//
//	- MetricsService: Runs the upload pipeline and master-table merges
//	- HealthService: Provides system health checks
//
// # Error Handling
//
// Services return domain-specific errors that handlers can transform:
//
//	- Validation errors for invalid input
//	- Not found errors for missing resources
//	- Storage errors for filesystem and database failures
//	- Internal errors for unexpected failures
//
// # Testing
//
// Service tests run the real pipeline against temp-dir paths and an
// in-memory history log:
//
//	svc, paths := newTestService(t)
//	result, err := svc.ProcessUpload(ctx, "export.xlsx", workbook)
package services
