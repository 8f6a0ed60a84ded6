// Package core provides the business logic behind the data-quality API.
//
// This package ties the data packages together independent of any transport
// layer. It can be used by web handlers, CLI tools, or tests without
// modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Files: CSV files in the data root, listed and summarised by [Service.ListFiles]
//     and [Service.FileMetadata].
//   - Datasets: files registered into a [tabular.Store] by [Service.CreateDataset]
//     and filtered by [Service.QueryDataset].
//   - Reports: the report plan bound over one dataset per request entry and
//     generated by [Service.CreateReport].
//
// # Report Flow
//
//  1. Client calls [Service.CreateReport] with dataset names and mappings
//  2. Service acquires a slot from the [ReportLimiter]
//  3. Each dataset is loaded from the store and optionally filtered
//  4. The plan binds metrics and charts, and the report is generated
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - IDX001, PAY001: Record errors (index range, payload decoding)
//   - QRY001: Filter query errors
//   - DS001-DS003, MET001-MET002, CHT001: Dataset and report errors
//   - FILE001-FILE004: File errors (size, missing, type, empty)
//   - REQ001, TBL001-TBL002, RATE001, BUSY001: Request errors
//
// # Concurrency
//
// Reports are limited by [ReportLimiter] (default: 4 concurrent). Use
// [Service.LimiterStatus] to monitor capacity and [Service.WaitForReports]
// during shutdown.
package core
