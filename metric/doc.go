// Package metric exports object store diagnostics as Prometheus metrics.
//
// Observer counts the events managers emit, labelled by class:
//
//	reg := prometheus.NewRegistry()
//	obs, err := metric.NewObserver(reg)
//	if err != nil {
//	    return err
//	}
//	src := objectstore.NewSource(objectstore.WithManagerDefaults(objectstore.WithObserver(obs)))
//	http.Handle("/metrics", metric.Handler(reg))
package metric
