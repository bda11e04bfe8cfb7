package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingResolutionsTotal counts retail price resolutions by structure and outcome.
	PricingResolutionsTotal *prometheus.CounterVec
	// VendorCostResolutionsTotal counts vendor cost resolutions by provenance.
	VendorCostResolutionsTotal *prometheus.CounterVec
	// ProfitReportRows records the number of rows in built profit reports.
	ProfitReportRows prometheus.Histogram
	// ProfitReportCacheTotal counts report cache lookups by result.
	ProfitReportCacheTotal *prometheus.CounterVec
	// ProfitSnapshotTotal counts snapshot task outcomes.
	ProfitSnapshotTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_resolutions_total",
			Help:      "Count of retail price resolutions by pricing structure and result.",
		}, []string{"structure", "result"})
		VendorCostResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vendor_cost_resolutions_total",
			Help:      "Count of vendor cost resolutions by provenance.",
		}, []string{"provenance"})
		ProfitReportRows = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profit_report_rows",
			Help:      "Number of rows in built profit reports.",
			Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
		})
		ProfitReportCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profit_report_cache_total",
			Help:      "Count of profit report cache lookups by result.",
		}, []string{"result"})
		ProfitSnapshotTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profit_snapshot_total",
			Help:      "Count of profit snapshot task outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, PricingResolutionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingResolutionsTotal = v
			}
		})
		mustRegisterCollector(reg, VendorCostResolutionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				VendorCostResolutionsTotal = v
			}
		})
		mustRegisterCollector(reg, ProfitReportRows, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				ProfitReportRows = v
			}
		})
		mustRegisterCollector(reg, ProfitReportCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ProfitReportCacheTotal = v
			}
		})
		mustRegisterCollector(reg, ProfitSnapshotTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ProfitSnapshotTotal = v
			}
		})
	})
}

// ObservePricing records a retail price resolution. It is a no-op until the
// domain metrics are registered.
func ObservePricing(structure, result string) {
	if PricingResolutionsTotal != nil {
		PricingResolutionsTotal.WithLabelValues(structure, result).Inc()
	}
}

// ObserveVendorCost records a vendor cost resolution.
func ObserveVendorCost(provenance string) {
	if VendorCostResolutionsTotal != nil {
		VendorCostResolutionsTotal.WithLabelValues(provenance).Inc()
	}
}

// ObserveReport records the size of a built profit report.
func ObserveReport(rows int) {
	if ProfitReportRows != nil {
		ProfitReportRows.Observe(float64(rows))
	}
}

// ObserveReportCache records a report cache hit or miss.
func ObserveReportCache(result string) {
	if ProfitReportCacheTotal != nil {
		ProfitReportCacheTotal.WithLabelValues(result).Inc()
	}
}

// ObserveSnapshot records a snapshot task outcome.
func ObserveSnapshot(result string) {
	if ProfitSnapshotTotal != nil {
		ProfitSnapshotTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
