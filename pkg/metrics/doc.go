// Package metrics exposes Prometheus collectors for soapconnect.
//
// Components accept a *Metrics and treat nil as disabled, so library users
// that do not scrape pay nothing. The CLI registers the default set:
//
//	m := metrics.Init()
//	http.Handle("/metrics", m.Handler())
//
// # Metrics
//
//   - soapconnect_calls_total{operation,outcome}: remote operation calls;
//     outcome is ok, fault or error
//   - soapconnect_call_duration_seconds{operation}
//   - soapconnect_document_fetches_total{source,result}: capability document
//     loads; source is http, file or cache
//   - soapconnect_connects_total{result}
//   - soapconnect_operations: size of the published operation table
//   - soapconnect_gateway_requests_total{operation,status}
//   - soapconnect_rate_limited_total
package metrics
