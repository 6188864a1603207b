// Package internaldefs holds the metric names and bucket bounds shared by the
// goEnroll exporters, so Prometheus and OTel report identical series.
package internaldefs
